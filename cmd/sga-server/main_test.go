package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sga/sga/internal/config"
	"github.com/sga/sga/internal/platform/auth"
	"github.com/sga/sga/internal/platform/db"
	"github.com/sga/sga/internal/platform/kv"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type nopMailer struct{}

func (nopMailer) SendTemplate(context.Context, string, string, map[string]string) error { return nil }

func newTestRouter() (*echo.Echo, *auth.TokenService) {
	tokens := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	e := newRouter(deps{
		cfg: &config.Config{
			Env:          "development",
			CORSOrigins:  []string{"http://localhost:5173"},
			ResetCodeTTL: time.Minute,
		},
		logger: zerolog.New(io.Discard),
		health: db.HealthHandler(stubPinger{}, nil),
		tokens: tokens,
		codes:  kv.NewMemoryKV(),
		mailer: nopMailer{},
		loc:    time.UTC,
	})
	return e, tokens
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, tokens *auth.TokenService, role auth.Role) string {
	t.Helper()
	tok, _, err := tokens.Issue(auth.Identity{ID: uuid.NewString(), Name: "Teste", Role: role})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	return "Bearer " + tok
}

func TestRouter_Health(t *testing.T) {
	e, _ := newTestRouter()

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), version) {
		t.Errorf("unexpected /health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected request id header")
	}

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected /health/db 200, got %d", rec.Code)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	e, _ := newTestRouter()

	for _, target := range []string{"/api/agenda", "/api/pacientes", "/api/medicamentos", "/api/auth/me"} {
		rec := serve(e, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", target, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["message"] == "" {
			t.Errorf("%s: expected JSON message, got %s", target, rec.Body.String())
		}
	}
}

func TestRouter_PublicAuthRoutes(t *testing.T) {
	e, _ := newTestRouter()

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected logout 204, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if rec := serve(e, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected login validation 400, got %d", rec.Code)
	}
}

func TestRouter_CapabilityGate(t *testing.T) {
	e, tokens := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/usuarios", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, tokens, auth.RoleCaregiver))
	if rec := serve(e, req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for caregiver on /usuarios, got %d", rec.Code)
	}
}

func TestRouter_AgendaValidatesBeforeStorage(t *testing.T) {
	e, tokens := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/agenda?data=31-02-2024", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, tokens, auth.RoleNurse))
	if rec := serve(e, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/agenda/prescricoes", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, tokens, auth.RoleCaregiver))
	rec := serve(e, req)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "caregiver") {
		t.Errorf("expected 403 naming the role, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestMigrationSource_Embedded(t *testing.T) {
	migrations, err := db.NewMigrator(nil, migrationSource("")).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) < 4 {
		t.Fatalf("expected embedded migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("expected contiguous versions, got %d at %d", m.Version, i)
		}
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printStatus(cmd, []db.MigrationStatus{
		{Version: 1, Name: "001_core.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_atendimento.sql"},
	})
	out := buf.String()
	if !strings.Contains(out, "applied") || !strings.Contains(out, "2024-03-01 10:00:00") || !strings.Contains(out, "pending") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestUserCreate_RequiresFlags(t *testing.T) {
	cmd := userCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"create", "--name", "Ana"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("expected missing flag error, got %v", err)
	}
}

func TestStoppedCleanly(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, true},
		{context.Canceled, true},
		{fmt.Errorf("outbox relay: %w", context.Canceled), true},
		{http.ErrServerClosed, true},
		{context.DeadlineExceeded, false},
		{errors.New("listen tcp :8000: address already in use"), false},
	}
	for _, tc := range cases {
		if got := stoppedCleanly(tc.err); got != tc.want {
			t.Errorf("stoppedCleanly(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRouter_RoutesLiveUnderAPIPrefix(t *testing.T) {
	e, _ := newTestRouter()

	for _, path := range []string{"/agenda", "/auth/me", "/pacientes"} {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404 outside /api, got %d", path, rec.Code)
		}
		if rec := serve(e, httptest.NewRequest(http.MethodGet, "/api"+path, nil)); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET /api%s: expected 401 without a token, got %d", path, rec.Code)
		}
	}
}
