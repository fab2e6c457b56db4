package dto

import (
	"time"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/models"
)

// LoginRequest carries local credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=256"`
	NewPassword     string `json:"new_password" validate:"required,min=4,max=256"`
}

// CreateUserRequest registers a local user.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=128"`
	Password  string `json:"password" validate:"required,min=4,max=256"`
	Role      string `json:"role" validate:"required,oneof=Admin Department Company Student"`
	StudentID *uint  `json:"student_id" validate:"omitempty,min=1"`
}

// PrincipalResponse exposes the authenticated identity.
type PrincipalResponse struct {
	Identifier    string `json:"identifier"`
	Role          string `json:"role"`
	Source        string `json:"source"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email,omitempty"`
	StudentID     *uint  `json:"student_id,omitempty"`
	StudentNumber string `json:"student_number,omitempty"`
}

// NewPrincipalResponse maps a principal into its response payload.
func NewPrincipalResponse(p auth.Principal) PrincipalResponse {
	return PrincipalResponse{
		Identifier:    p.Identifier,
		Role:          p.Role.String(),
		Source:        string(p.Source),
		DisplayName:   p.DisplayName,
		Email:         p.Email,
		StudentID:     p.StudentID,
		StudentNumber: p.StudentNumber,
	}
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Token     string            `json:"token"`
	TokenType string            `json:"token_type"`
	ExpiresAt time.Time         `json:"expires_at"`
	Principal PrincipalResponse `json:"principal"`
}

// NewSessionResponse wraps an issued token and its session.
func NewSessionResponse(token string, session auth.Session) SessionResponse {
	return SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
		Principal: NewPrincipalResponse(session.Principal),
	}
}

// FederatedStartResponse points the browser at the identity provider.
type FederatedStartResponse struct {
	AuthorizationURL string    `json:"authorization_url"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// UserResponse represents a local user without its secrets.
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	StudentID *uint     `json:"student_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse maps a user model.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role.String(),
		StudentID: user.StudentID,
		CreatedAt: user.CreatedAt,
	}
}
