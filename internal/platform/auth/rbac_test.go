package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sga/sga/internal/platform/apperr"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapUser, true},
		{RoleAdmin, CapAgenda, true},
		{RolePhysician, CapMedication, true},
		{RolePhysician, CapUser, false},
		{RoleNurse, CapVisit, true},
		{RoleNurse, CapPatient, false},
		{RoleCaregiver, CapAgenda, true},
		{RoleCaregiver, CapVisit, false},
		{Role("janitor"), CapAgenda, false},
	}
	for _, tt := range tests {
		if got := tt.role.Capabilities().Has(tt.cap); got != tt.want {
			t.Errorf("%s.Has(%s) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	if !RolePhysician.Valid() {
		t.Error("expected physician to be valid")
	}
	if Role("Physician").Valid() {
		t.Error("roles are case sensitive")
	}
}

func withIdentity(req *http.Request, id Identity) *http.Request {
	return req.WithContext(WithIdentity(req.Context(), id))
}

func TestRequireCapability_Allowed(t *testing.T) {
	e := echo.New()
	req := withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), Identity{ID: "u-1", Role: RolePhysician})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireCapability(CapPatient)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireCapability_Denied(t *testing.T) {
	e := echo.New()
	req := withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), Identity{ID: "u-1", Role: RoleCaregiver})
	c := e.NewContext(req, httptest.NewRecorder())

	err := RequireCapability(CapUser)(func(c echo.Context) error { return nil })(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if !strings.Contains(he.Message.(string), "caregiver") {
		t.Errorf("expected role in message, got %v", he.Message)
	}
}

func TestRequireCapability_NoIdentity(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := RequireCapability(CapAgenda)(func(c echo.Context) error { return nil })(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestCheckRole(t *testing.T) {
	if err := CheckRole(Identity{ID: "u", Role: RoleAdmin}, RolePhysician, RoleAdmin); err != nil {
		t.Errorf("expected admin allowed, got %v", err)
	}

	err := CheckRole(Identity{ID: "u", Role: RoleNurse}, RolePhysician, RoleAdmin)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if !strings.Contains(err.Error(), `"nurse"`) {
		t.Errorf("expected current role in message, got %s", err.Error())
	}

	if err := CheckRole(Identity{}, RoleAdmin); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestIdentity_UserID(t *testing.T) {
	want := uuid.New()
	got, err := Identity{ID: want.String(), Role: RoleNurse}.UserID()
	if err != nil || got != want {
		t.Errorf("UserID() = %s, %v; want %s", got, err, want)
	}

	if _, err := (Identity{ID: "not-a-uuid"}).UserID(); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated for bad subject, got %v", err)
	}
	if _, err := (Identity{}).UserID(); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated for empty identity, got %v", err)
	}
}
