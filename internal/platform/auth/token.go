package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sga/sga/internal/platform/apperr"
)

const tokenIssuer = "sga"

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
}

// Resolver turns a raw credential into the caller's identity.
type Resolver interface {
	Resolve(credential string) (Identity, error)
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenService(key []byte, ttl time.Duration) *TokenService {
	return &TokenService{key: key, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for the identity and returns it with its expiry.
func (s *TokenService) Issue(id Identity) (string, time.Time, error) {
	if !id.Authenticated() {
		return "", time.Time{}, errors.New("cannot issue token without subject")
	}
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name: id.Name,
		Role: id.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Resolve verifies the token. Any verification failure is reported as
// apperr.ErrUnauthenticated.
func (s *TokenService) Resolve(credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, apperr.Unauthenticated("missing token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}

	return Identity{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}
