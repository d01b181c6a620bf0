package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// SignupRequest payload.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Department  string `json:"department"`
	HostelBlock string `json:"hostelBlock"`
	RoomNumber  string `json:"roomNumber"`
	PhoneNumber string `json:"phoneNumber"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries issued token info.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserResponse describes an account.
type UserResponse struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	Role        domain.Role `json:"role"`
	Department  string      `json:"department,omitempty"`
	HostelBlock string      `json:"hostelBlock,omitempty"`
	RoomNumber  string      `json:"roomNumber,omitempty"`
	PhoneNumber string      `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}
