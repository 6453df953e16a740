package dto

import (
	"time"
)

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"omitempty,min=3,max=150"`
	FullName        string `json:"full_name" validate:"required,min=2"`
	Phone           string `json:"phone" validate:"omitempty,min=10,max=20"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Response DTOs

// AuthResponse carries the portal session token. Upstream hospital tokens
// stay on the server.
type AuthResponse struct {
	Token        string       `json:"token,omitempty"`
	ExpiresIn    int64        `json:"expires_in,omitempty"`
	User         UserResponse `json:"user"`
	Role         string       `json:"role"`
	DashboardURL string       `json:"dashboard_url,omitempty"`
	Message      string       `json:"message,omitempty"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
