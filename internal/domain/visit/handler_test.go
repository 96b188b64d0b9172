package visit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sga/sga/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func withCaller(req *http.Request, id auth.Identity) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), id))
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_CreateVisit(t *testing.T) {
	h, e := newTestHandler()

	body := `{"pacienteId":"` + uuid.NewString() + `","descricao":"Curativo","temperatura":"36.4",
		"medicamentos":[{"medicamentoId":"` + uuid.NewString() + `","dosagem":"10 gotas"}]}`
	req := httptest.NewRequest(http.MethodPost, "/atendimentos", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(withCaller(req, nurse), rec)

	if err := h.CreateVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var v Visit
	json.Unmarshal(rec.Body.Bytes(), &v)
	if len(v.Medications) != 1 || v.Temperature == nil || *v.Temperature != 36.4 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CreateVisit_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	body := `{"pacienteId":"` + uuid.NewString() + `","descricao":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/atendimentos", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if code := httpCode(t, h.CreateVisit(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestHandler_GetVisit(t *testing.T) {
	h, e := newTestHandler()
	v, _ := h.svc.CreateVisit(context.Background(), nurse, CreateInput{PatientID: uuid.New(), Description: "x"})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())

	if err := h.GetVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetVisit_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if code := httpCode(t, h.GetVisit(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_ListVisits_RequiresPatient(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/atendimentos", nil), httptest.NewRecorder())

	if code := httpCode(t, h.ListVisits(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_ListVisits(t *testing.T) {
	h, e := newTestHandler()
	p := uuid.New()
	h.svc.CreateVisit(context.Background(), nurse, CreateInput{PatientID: p, Description: "x"})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/atendimentos?pacienteId="+p.String(), nil), rec)

	if err := h.ListVisits(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
