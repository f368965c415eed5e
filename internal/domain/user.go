/**
 * @description
 * Core user and profile models for the directory backend.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserType defines the type of a user account.
type UserType string

const (
	RegularUser       UserType = "regular"
	BusinessOwnerUser UserType = "business_owner"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	UserType     UserType  `json:"user_type"`
	Phone        string    `json:"phone,omitempty"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the DTO for the registration endpoint.
type RegisterRequest struct {
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	UserType UserType `json:"user_type"`
	Phone    string   `json:"phone"`
}

// LoginRequest is the DTO for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the signed token returned after registration or login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UpdateProfileRequest is the DTO for profile updates.
type UpdateProfileRequest struct {
	Username *string   `json:"username,omitempty"`
	Phone    *string   `json:"phone,omitempty"`
	UserType *UserType `json:"user_type,omitempty"`
}
