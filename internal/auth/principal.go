package auth

import "github.com/noah-isme/extension-hours-api/internal/models"

// Source records how a principal authenticated.
type Source string

const (
	SourceLocal     Source = "local"
	SourceFederated Source = "federated"
)

// Principal is the resolved identity for the current interaction. It is never persisted.
type Principal struct {
	Identifier  string      `json:"identifier"`
	Role        models.Role `json:"role"`
	Source      Source      `json:"source"`
	DisplayName string      `json:"display_name,omitempty"`
	Email       string      `json:"email,omitempty"`
	// StudentID links local accounts to a students row.
	StudentID *uint `json:"student_id,omitempty"`
	// StudentNumber is the institutional number derived from a federated email.
	StudentNumber string `json:"student_number,omitempty"`
}

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...models.Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}
