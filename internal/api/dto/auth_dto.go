package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the access token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AgentResponse is the public view of an agent.
type AgentResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         domain.AgentRole `json:"role"`
	DepartmentID *string          `json:"department_id"`
	Skills       []string         `json:"skills"`
}
