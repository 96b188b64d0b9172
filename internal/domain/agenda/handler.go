package agenda

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sga/sga/internal/platform/apperr"
	"github.com/sga/sga/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes expects api to be behind auth.Authenticate. Role checks for
// prescribing happen in the service.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/agenda", h.ListDay)
	api.POST("/agenda/prescricoes", h.CreatePrescription)
	api.GET("/agenda/prescricoes", h.ListPrescriptions)
	api.GET("/agenda/prescricoes/:id", h.GetPrescription)
	api.POST("/agenda/baixa", h.RecordAdministration)
}

func (h *Handler) ListDay(c echo.Context) error {
	items, err := h.svc.ListDay(c.Request().Context(), c.QueryParam("data"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*DayEntry{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var in PrescriptionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.CreatePrescription(c.Request().Context(), auth.Caller(c), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":    "Prescrição criada e agenda gerada com sucesso.",
		"prescricao": p,
	})
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("pacienteId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "pacienteId query parameter is required")
	}
	items, err := h.svc.ListPrescriptionsByPatient(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Prescription{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RecordAdministration(c echo.Context) error {
	var in CompletionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	done, err := h.svc.RecordAdministration(c.Request().Context(), auth.Caller(c), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":       "Baixa registrada com sucesso.",
		"atendimentoId": done.Visit.ID,
	})
}
