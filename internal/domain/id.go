package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a prefixed entity ID, e.g. "obl_4f2a9c1d8e3b".
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}
