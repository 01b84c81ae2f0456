package domain

import (
	"context"
	"time"
)

// User represents a registered user of the platform.
type User struct {
	ID            int64
	Username      string
	Email         string
	PasswordHash  string
	PhoneNumber   string
	Identificator string // national ID (DNI), 8 digits
	Location      string // resolved from the sign-up IP, opaque to persistence
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}
