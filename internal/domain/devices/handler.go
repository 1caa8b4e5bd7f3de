package devices

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/S-tej/LDPS/internal/platform/auth"
)

// Handler exposes the device registry REST API.
type Handler struct {
	svc *Service
}

// NewHandler creates a new device handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the device routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/devices", h.Register, auth.RequireRole(auth.RoleAdmin))
	g.GET("/devices/available", h.ListAvailable)
	g.GET("/devices/:id", h.Get)
	g.POST("/devices/:id/assign", h.Assign)
	g.POST("/devices/:id/unassign", h.Unassign)
	g.GET("/users/:userId/devices", h.ListByUser,
		auth.RequireSelfOrRole("userId", auth.RoleCaretaker))
}

type registerRequest struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
}

// Register handles POST /devices.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d, err := h.svc.Register(c.Request().Context(), req.DeviceID, req.Name)
	if errors.Is(err, ErrDeviceExists) {
		return echo.NewHTTPError(http.StatusConflict, "device already registered")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

// Get handles GET /devices/:id.
func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid device id")
	}

	d, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrDeviceNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "device not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

// ListAvailable handles GET /devices/available.
func (h *Handler) ListAvailable(c echo.Context) error {
	list, err := h.svc.ListAvailable(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

// ListByUser handles GET /users/:userId/devices.
func (h *Handler) ListByUser(c echo.Context) error {
	list, err := h.svc.ListByUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

type assignRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Assign handles POST /devices/:id/assign. Users claim a device for
// themselves; admins may assign on behalf of any user.
func (h *Handler) Assign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid device id")
	}

	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	caller := auth.UserIDFromContext(c.Request().Context())
	if req.UserID == "" {
		req.UserID = caller
	}
	if req.UserID != caller && !hasRole(c, auth.RoleAdmin) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot assign devices to other users")
	}

	d, err := h.svc.Assign(c.Request().Context(), id, req.UserID, req.Email)
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "device not found")
	case errors.Is(err, ErrDeviceAssigned):
		return echo.NewHTTPError(http.StatusConflict, "device already assigned")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

// Unassign handles POST /devices/:id/unassign.
func (h *Handler) Unassign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid device id")
	}

	d, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrDeviceNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "device not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	caller := auth.UserIDFromContext(c.Request().Context())
	if (d.UserID == nil || *d.UserID != caller) && !hasRole(c, auth.RoleAdmin) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot release another user's device")
	}

	d, err = h.svc.Unassign(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func hasRole(c echo.Context, role string) bool {
	for _, r := range auth.RolesFromContext(c.Request().Context()) {
		if r == role {
			return true
		}
	}
	return false
}
