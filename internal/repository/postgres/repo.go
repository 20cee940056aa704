// Package postgres implements the domain repository interfaces against
// PostgreSQL via pgx.
package postgres

import (
	"context"
	"time"
)

// queryTimeout bounds every statement so a stalled database surfaces as an
// error instead of a hung request.
const queryTimeout = 5 * time.Second

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), queryTimeout)
}
