package account

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/auth"
	"github.com/sga/sga/internal/platform/kv"
	"github.com/sga/sga/internal/platform/notification"
)

// TokenIssuer signs session tokens. *auth.TokenService implements it.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, time.Time, error)
}

// Mailer delivers templated email. *notification.Mailer implements it.
type Mailer interface {
	SendTemplate(ctx context.Context, templateID, to string, data map[string]string) error
}

type Service struct {
	users   UserRepository
	tokens  TokenIssuer
	codes   kv.KV
	mailer  Mailer
	codeTTL time.Duration
	logger  zerolog.Logger
}

func NewService(users UserRepository, tokens TokenIssuer, codes kv.KV, mailer Mailer, codeTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		codes:   codes,
		mailer:  mailer,
		codeTTL: codeTTL,
		logger:  logger,
	}
}

// dummyHash is compared against when the email is unknown so that a login
// attempt costs the same either way.
var dummyHash, _ = hashPassword("sga-timing-equalizer")

var errBadCredentials = apperr.Unauthenticated("invalid email or password")

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("email and senha are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		checkPassword(dummyHash, in.Password)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(u.PasswordHash, in.Password) || !u.Active {
		return nil, errBadCredentials
	}

	token, exp, err := s.tokens.Issue(u.Identity())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("login")
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Me returns the account behind the caller's session.
func (s *Service) Me(ctx context.Context, caller auth.Identity) (*User, error) {
	id, err := caller.UserID()
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthenticated("account no longer exists")
	}
	return u, err
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, apperr.Validation("nome is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("role %q is not valid", in.Role)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{Name: name, Email: email, PasswordHash: hash, Role: in.Role, Active: true}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("user created")

	if err := s.mailer.SendTemplate(ctx, notification.TemplateWelcome, u.Email, map[string]string{
		"nome":   u.Name,
		"email":  u.Email,
		"perfil": string(u.Role),
	}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("welcome email not sent")
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// RequestPasswordReset stores a fresh code for the account and emails it.
// Unknown emails succeed silently so the endpoint cannot be used to probe
// which addresses have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, in ForgotPasswordInput) error {
	email := normalizeEmail(in.Email)
	if email == "" {
		return apperr.Validation("email is required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		s.logger.Debug().Str("email", email).Msg("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	if !u.Active {
		return nil
	}

	code, err := newResetCode()
	if err != nil {
		return err
	}
	if err := s.codes.Set(ctx, resetKey(email), code, s.codeTTL); err != nil {
		return err
	}
	if err := s.codes.Delete(ctx, attemptsKey(email)); err != nil {
		return err
	}

	if err := s.mailer.SendTemplate(ctx, notification.TemplatePasswordReset, u.Email, map[string]string{
		"nome":     u.Name,
		"codigo":   code,
		"validade": formatTTL(s.codeTTL),
	}); err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("password reset email not sent")
	}
	return nil
}

var errBadCode = apperr.Validation("invalid or expired code")

// ResetPassword replaces the password when code matches the stored one.
// After maxResetAttempts wrong guesses the code is discarded.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	email := normalizeEmail(in.Email)
	code := strings.TrimSpace(in.Code)
	if email == "" || code == "" {
		return apperr.Validation("email and codigo are required")
	}
	if err := validatePassword(in.NewPassword); err != nil {
		return err
	}

	stored, err := s.codes.Get(ctx, resetKey(email))
	if errors.Is(err, kv.ErrMiss) {
		return errBadCode
	}
	if err != nil {
		return err
	}
	if !codesEqual(stored, code) {
		if err := s.countFailedAttempt(ctx, email); err != nil {
			return err
		}
		return errBadCode
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return errBadCode
	}
	if err != nil {
		return err
	}
	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	s.discardCode(ctx, email)
	s.logger.Info().Str("user_id", u.ID.String()).Msg("password reset")
	return nil
}

func (s *Service) countFailedAttempt(ctx context.Context, email string) error {
	n := 0
	raw, err := s.codes.Get(ctx, attemptsKey(email))
	switch {
	case err == nil:
		n, _ = strconv.Atoi(raw)
	case !errors.Is(err, kv.ErrMiss):
		return err
	}
	n++
	if n >= maxResetAttempts {
		s.discardCode(ctx, email)
		return nil
	}
	return s.codes.Set(ctx, attemptsKey(email), strconv.Itoa(n), s.codeTTL)
}

func (s *Service) discardCode(ctx context.Context, email string) {
	for _, key := range []string{resetKey(email), attemptsKey(email)} {
		if err := s.codes.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("delete reset code")
		}
	}
}

func formatTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hora"
		}
		return strconv.Itoa(h) + " horas"
	}
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minuto"
	}
	return strconv.Itoa(m) + " minutos"
}

// GetUser returns a single account by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}
