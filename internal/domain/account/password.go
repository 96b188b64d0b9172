package account

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/sga/sga/internal/platform/apperr"
)

const (
	MinPasswordLength = 6
	resetCodeDigits   = 6
	maxResetAttempts  = 5
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

func validatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	// bcrypt ignores input past 72 bytes.
	if len(p) > 72 {
		return apperr.Validation("password must be at most 72 bytes")
	}
	return nil
}

func hashPassword(p string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(p), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func checkPassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

// newResetCode returns a uniformly random zero-padded numeric code.
func newResetCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < resetCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n.Int64()), nil
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func resetKey(email string) string    { return "reset:" + email }
func attemptsKey(email string) string { return "reset-attempts:" + email }
