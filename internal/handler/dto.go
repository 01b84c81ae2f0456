package handler

import (
	"time"

	"github.com/msomdec/agro-iam/internal/domain"
)

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID            int64  `json:"id"`
	Username      string `json:"userName"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phoneNumber"`
	Identificator string `json:"identificator"`
	Location      string `json:"location"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		Identificator: u.Identificator,
		Location:      u.Location,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.Format(time.RFC3339),
	}
}

// SignInDTO is returned by a successful sign-in.
type SignInDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"userName"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}
