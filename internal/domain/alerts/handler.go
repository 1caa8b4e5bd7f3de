package alerts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/S-tej/LDPS/internal/platform/auth"
)

// Handler exposes the alert lifecycle REST API.
type Handler struct {
	svc *Service
}

// NewHandler creates a new alert handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the alert routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients/:patientId/alerts", h.ListAlerts,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
	g.POST("/patients/:patientId/alerts", h.TriggerAlert,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
	g.POST("/patients/:patientId/alerts/emergency", h.TriggerEmergency,
		auth.RequireSelfOrRole("patientId"))
	g.PUT("/patients/:patientId/alerts/:alertId/acknowledge", h.AcknowledgeAlert,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
	g.DELETE("/patients/:patientId/alerts/:alertId", h.ClearAlert,
		auth.RequireSelfOrRole("patientId"))

	g.GET("/caretakers/:caretakerId/notifications", h.ListNotifications,
		auth.RequireSelfOrRole("caretakerId"))
	g.PUT("/caretakers/:caretakerId/notifications/:id/read", h.MarkNotificationRead,
		auth.RequireSelfOrRole("caretakerId"))
}

// ListAlerts handles GET /patients/:patientId/alerts.
func (h *Handler) ListAlerts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	alerts, err := h.svc.ListAlerts(c.Request().Context(), c.Param("patientId"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, alerts)
}

// TriggerAlert handles POST /patients/:patientId/alerts. The emergency type
// is only reachable through the dedicated endpoint.
func (h *Handler) TriggerAlert(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.Type == TypeEmergency {
		return echo.NewHTTPError(http.StatusBadRequest, "use the emergency endpoint for emergency alerts")
	}

	alert, err := h.svc.TriggerAlert(c.Request().Context(), c.Param("patientId"), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, alert)
}

type emergencyRequest struct {
	Message string `json:"message"`
}

// TriggerEmergency handles POST /patients/:patientId/alerts/emergency.
func (h *Handler) TriggerEmergency(c echo.Context) error {
	var req emergencyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	alert, err := h.svc.TriggerEmergency(c.Request().Context(), c.Param("patientId"), req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, alert)
}

// AcknowledgeAlert handles PUT /patients/:patientId/alerts/:alertId/acknowledge.
func (h *Handler) AcknowledgeAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("alertId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}

	err = h.svc.AcknowledgeAlert(c.Request().Context(), c.Param("patientId"), id)
	if errors.Is(err, ErrAlertNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearAlert handles DELETE /patients/:patientId/alerts/:alertId.
func (h *Handler) ClearAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("alertId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}

	err = h.svc.ClearAlert(c.Request().Context(), c.Param("patientId"), id)
	if errors.Is(err, ErrAlertNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListNotifications handles GET /caretakers/:caretakerId/notifications.
func (h *Handler) ListNotifications(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	notifications, err := h.svc.ListNotifications(c.Request().Context(), c.Param("caretakerId"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead handles PUT /caretakers/:caretakerId/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}

	err = h.svc.MarkNotificationRead(c.Request().Context(), c.Param("caretakerId"), id)
	if errors.Is(err, ErrNotificationNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
