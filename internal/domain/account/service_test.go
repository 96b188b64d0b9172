package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/auth"
	"github.com/sga/sga/internal/platform/kv"
	"github.com/sga/sga/internal/platform/notification"
)

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("email already registered")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

type sentMail struct {
	template string
	to       string
	data     map[string]string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendTemplate(_ context.Context, templateID, to string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{template: templateID, to: to, data: data})
	return f.err
}

func (f *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("expected an email to be sent")
	}
	return f.sent[len(f.sent)-1]
}

type testEnv struct {
	svc    *Service
	users  *mockUserRepo
	codes  *kv.MemoryKV
	mailer *fakeMailer
	tokens *auth.TokenService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:  newMockUserRepo(),
		codes:  kv.NewMemoryKV(),
		mailer: &fakeMailer{},
		tokens: auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), time.Hour),
	}
	env.svc = NewService(env.users, env.tokens, env.codes, env.mailer, 15*time.Minute, zerolog.Nop())
	return env
}

func (env *testEnv) seed(t *testing.T, email, password string, role auth.Role) *User {
	t.Helper()
	u, err := env.svc.CreateUser(context.Background(), CreateUserInput{
		Name: "Ana", Email: email, Password: password, Role: role,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv()
	u, err := env.svc.CreateUser(context.Background(), CreateUserInput{
		Name: " Ana ", Email: " Ana@Clinica.com ", Password: "segredo1", Role: auth.RoleNurse,
	})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if u.Name != "Ana" || u.Email != "ana@clinica.com" || !u.Active {
		t.Errorf("unexpected user %+v", u)
	}
	if u.PasswordHash == "segredo1" || !checkPassword(u.PasswordHash, "segredo1") {
		t.Error("expected bcrypt hash of the password")
	}
	mail := env.mailer.last(t)
	if mail.template != notification.TemplateWelcome || mail.to != "ana@clinica.com" || mail.data["perfil"] != "nurse" {
		t.Errorf("unexpected welcome mail %+v", mail)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTestEnv()
	cases := []CreateUserInput{
		{Email: "a@b.c", Password: "segredo1", Role: auth.RoleNurse},
		{Name: "Ana", Email: "not-an-email", Password: "segredo1", Role: auth.RoleNurse},
		{Name: "Ana", Email: "a@b.c", Password: "123", Role: auth.RoleNurse},
		{Name: "Ana", Email: "a@b.c", Password: "segredo1", Role: "janitor"},
	}
	for i, in := range cases {
		if _, err := env.svc.CreateUser(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv()
	env.seed(t, "ana@clinica.com", "segredo1", auth.RoleNurse)
	_, err := env.svc.CreateUser(context.Background(), CreateUserInput{
		Name: "Outra", Email: "ANA@clinica.com", Password: "segredo1", Role: auth.RoleNurse,
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestCreateUser_MailFailureIsNotFatal(t *testing.T) {
	env := newTestEnv()
	env.mailer.err = errors.New("smtp down")
	if _, err := env.svc.CreateUser(context.Background(), CreateUserInput{
		Name: "Ana", Email: "ana@clinica.com", Password: "segredo1", Role: auth.RoleAdmin,
	}); err != nil {
		t.Fatalf("expected user to be created despite mail failure, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv()
	u := env.seed(t, "ana@clinica.com", "segredo1", auth.RolePhysician)

	sess, err := env.svc.Login(context.Background(), LoginInput{Email: "ANA@clinica.com", Password: "segredo1"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if sess.User.ID != u.ID || sess.Token == "" {
		t.Errorf("unexpected session %+v", sess)
	}
	id, err := env.tokens.Resolve(sess.Token)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id.ID != u.ID.String() || id.Role != auth.RolePhysician {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv()
	env.seed(t, "ana@clinica.com", "segredo1", auth.RoleNurse)

	for _, in := range []LoginInput{
		{Email: "ana@clinica.com", Password: "errada"},
		{Email: "ninguem@clinica.com", Password: "segredo1"},
	} {
		if _, err := env.svc.Login(context.Background(), in); !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Errorf("%s: expected unauthenticated, got %v", in.Email, err)
		}
	}
	if _, err := env.svc.Login(context.Background(), LoginInput{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for empty input, got %v", err)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	env := newTestEnv()
	u := env.seed(t, "ana@clinica.com", "segredo1", auth.RoleNurse)
	env.users.users[u.ID].Active = false

	if _, err := env.svc.Login(context.Background(), LoginInput{Email: "ana@clinica.com", Password: "segredo1"}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv()
	u := env.seed(t, "ana@clinica.com", "segredo1", auth.RoleNurse)

	got, err := env.svc.Me(context.Background(), u.Identity())
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if got.Email != u.Email {
		t.Errorf("unexpected user %+v", got)
	}

	if _, err := env.svc.Me(context.Background(), auth.Identity{}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated for anonymous caller, got %v", err)
	}
	gone := auth.Identity{ID: uuid.NewString(), Role: auth.RoleNurse}
	if _, err := env.svc.Me(context.Background(), gone); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated for deleted account, got %v", err)
	}
}

func TestPasswordReset_FullFlow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seed(t, "ana@clinica.com", "segredo1", auth.RoleNurse)

	if err := env.svc.RequestPasswordReset(ctx, ForgotPasswordInput{Email: "Ana@Clinica.com"}); err != nil {
		t.Fatalf("RequestPasswordReset() error: %v", err)
	}
	mail := env.mailer.last(t)
	if mail.template != notification.TemplatePasswordReset || mail.data["validade"] != "15 minutos" {
		t.Fatalf("unexpected reset mail %+v", mail)
	}
	code := mail.data["codigo"]

	if err := env.svc.ResetPassword(ctx, ResetPasswordInput{Email: "ana@clinica.com", Code: code, NewPassword: "nova-senha"}); err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if _, err := env.svc.Login(ctx, LoginInput{Email: "ana@clinica.com", Password: "nova-senha"}); err != nil {
		t.Errorf("expected login with new password, got %v", err)
	}
	if _, err := env.svc.Login(ctx, LoginInput{Email: "ana@clinica.com", Password: "segredo1"}); err == nil {
		t.Error("expected old password to stop working")
	}

	// Codes are single use.
	err := env.svc.ResetPassword(ctx, ResetPasswordInput{Email: "ana@clinica.com", Code: code, NewPassword: "outra-senha"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected reused code to be rejected, got %v", err)
	}
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	env := newTestEnv()
	if err := env.svc.RequestPasswordReset(context.Background(), ForgotPasswordInput{Email: "ninguem@clinica.com"}); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.mailer.sent) != 0 {
		t.Errorf("expected no email, got %d", len(env.mailer.sent))
	}
}

func TestRequestPasswordReset_MailFailureIsHidden(t *testing.T) {
	env := newTestEnv()
	env.seed(t, "ana@clinica.com", "segredo1", auth.RoleNurse)
	env.mailer.err = errors.New("smtp down")

	if err := env.svc.RequestPasswordReset(context.Background(), ForgotPasswordInput{Email: "ana@clinica.com"}); err != nil {
		t.Errorf("expected success despite mail failure, got %v", err)
	}
}

func TestResetPassword_WrongCodeLocksOut(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seed(t, "ana@clinica.com", "segredo1", auth.RoleNurse)
	if err := env.svc.RequestPasswordReset(ctx, ForgotPasswordInput{Email: "ana@clinica.com"}); err != nil {
		t.Fatal(err)
	}
	code := env.mailer.last(t).data["codigo"]
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < maxResetAttempts; i++ {
		err := env.svc.ResetPassword(ctx, ResetPasswordInput{Email: "ana@clinica.com", Code: wrong, NewPassword: "nova-senha"})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("attempt %d: expected validation error, got %v", i, err)
		}
	}

	err := env.svc.ResetPassword(ctx, ResetPasswordInput{Email: "ana@clinica.com", Code: code, NewPassword: "nova-senha"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected code to be discarded after %d failures, got %v", maxResetAttempts, err)
	}
}

func TestResetPassword_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	cases := []ResetPasswordInput{
		{Code: "123456", NewPassword: "nova-senha"},
		{Email: "ana@clinica.com", NewPassword: "nova-senha"},
		{Email: "ana@clinica.com", Code: "123456", NewPassword: "123"},
	}
	for i, in := range cases {
		if err := env.svc.ResetPassword(ctx, in); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestFormatTTL(t *testing.T) {
	cases := map[time.Duration]string{
		time.Minute:      "1 minuto",
		15 * time.Minute: "15 minutos",
		time.Hour:        "1 hora",
		2 * time.Hour:    "2 horas",
		90 * time.Minute: "90 minutos",
	}
	for d, want := range cases {
		if got := formatTTL(d); got != want {
			t.Errorf("formatTTL(%s) = %q, want %q", d, got, want)
		}
	}
}
