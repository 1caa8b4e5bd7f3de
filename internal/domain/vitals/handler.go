package vitals

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/S-tej/LDPS/internal/platform/auth"
)

// Handler exposes the vitals REST API.
type Handler struct {
	svc *Service
}

// NewHandler creates a new vitals handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the vitals routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/patients/:patientId/vitals", h.RecordSnapshot,
		auth.RequireSelfOrRole("patientId"))
	g.GET("/patients/:patientId/vitals/current", h.CurrentSnapshot,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
	g.GET("/patients/:patientId/vitals/history", h.History,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
	g.POST("/patients/:patientId/vitals/simulate", h.Simulate,
		auth.RequireSelfOrRole("patientId"))

	g.GET("/patients/:patientId/thresholds", h.GetThresholds,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
	g.PUT("/patients/:patientId/thresholds", h.UpdateThresholds,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
}

type ingestRequest struct {
	Snapshot
	DeviceID string `json:"deviceId,omitempty"`
}

// RecordSnapshot handles POST /patients/:patientId/vitals.
func (h *Handler) RecordSnapshot(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	snap, err := h.svc.RecordSnapshot(c.Request().Context(), c.Param("patientId"), &req.Snapshot, req.DeviceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, snap)
}

// CurrentSnapshot handles GET /patients/:patientId/vitals/current. An empty
// current slot is an expected state and answers 404 with no body.
func (h *Handler) CurrentSnapshot(c echo.Context) error {
	snap, err := h.svc.CurrentSnapshot(c.Request().Context(), c.Param("patientId"))
	if errors.Is(err, ErrNoSnapshot) {
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

// History handles GET /patients/:patientId/vitals/history.
func (h *Handler) History(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	history, err := h.svc.History(c.Request().Context(), c.Param("patientId"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, history)
}

// Simulate handles POST /patients/:patientId/vitals/simulate by running one
// generated reading through the full ingest path. Demo seeding aid.
func (h *Handler) Simulate(c echo.Context) error {
	snap, err := h.svc.RecordSnapshot(c.Request().Context(), c.Param("patientId"), GenerateSnapshot(), "")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, snap)
}

// GetThresholds handles GET /patients/:patientId/thresholds.
func (h *Handler) GetThresholds(c echo.Context) error {
	t, err := h.svc.GetThresholds(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

// UpdateThresholds handles PUT /patients/:patientId/thresholds.
func (h *Handler) UpdateThresholds(c echo.Context) error {
	var t Thresholds
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.UpdateThresholds(c.Request().Context(), c.Param("patientId"), t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}
