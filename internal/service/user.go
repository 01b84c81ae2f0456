package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/agro-iam/internal/domain"
)

// UpdateProfileInput holds profile changes. Empty fields are left unchanged.
type UpdateProfileInput struct {
	Username    string `json:"userName" validate:"omitempty,min=3,max=50"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,e164"`
}

// UpdatePasswordInput holds a password change request.
type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=5,max=72"`
}

// UserService manages existing user accounts.
type UserService struct {
	users      domain.UserRepository
	bcryptCost int
	validate   *validator.Validate
}

// NewUserService creates a new UserService.
func NewUserService(users domain.UserRepository, bcryptCost int) *UserService {
	return &UserService{
		users:      users,
		bcryptCost: bcryptCost,
		validate:   newValidator(),
	}
}

// Get returns the user with the given ID.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies the non-empty fields of in to the user.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, in UpdateProfileInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if in.Username == "" && in.Email == "" && in.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != "" {
		user.Username = in.Username
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.PhoneNumber != "" {
		user.PhoneNumber = in.PhoneNumber
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces the user's password after verifying the current one.
func (s *UserService) UpdatePassword(ctx context.Context, id int64, in UpdatePasswordInput) error {
	if err := validateInput(s.validate, in); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return domain.ErrUnauthorized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, id, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes the user account.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
