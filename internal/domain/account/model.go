package account

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sga/sga/internal/platform/auth"
)

// User maps to the usuario table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"nome" json:"nome"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"senha_hash" json:"-"`
	Role         auth.Role `db:"role" json:"role"`
	Active       bool      `db:"ativo" json:"ativo"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Identity is the caller identity carried in the session token.
func (u *User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID.String(), Name: u.Name, Role: u.Role}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type CreateUserInput struct {
	Name     string    `json:"nome"`
	Email    string    `json:"email"`
	Password string    `json:"senha"`
	Role     auth.Role `json:"role"`
}

type ForgotPasswordInput struct {
	Email string `json:"email"`
}

type ResetPasswordInput struct {
	Email       string `json:"email"`
	Code        string `json:"codigo"`
	NewPassword string `json:"novaSenha"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"usuario"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
