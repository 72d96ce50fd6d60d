package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/triage-service/internal/domain"
)

// MinPasswordLength is the shortest staff password accepted for hashing.
const MinPasswordLength = 8

// ErrWeakPassword rejects passwords shorter than MinPasswordLength.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

// HashPassword hashes a staff password. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if len([]rune(password)) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CanLogin reports whether agent may sign in with password. Inactive agents, the assistant
// account and agents without a stored hash never can.
func CanLogin(agent *domain.Agent, password string) bool {
	if agent == nil || !agent.Active || agent.IsAssistant || agent.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(agent.PasswordHash), []byte(password)) == nil
}
