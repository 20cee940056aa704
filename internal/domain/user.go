package domain

import "time"

// User is the owning scope for every entity in the system. Authentication
// lives outside this service; only identity and base currency matter here.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	BaseCurrency string    `json:"baseCurrency"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserRepository interface {
	GetByID(id string) (*User, error)
	ListAll() ([]*User, error)
}
