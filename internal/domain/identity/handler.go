package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/S-tej/LDPS/internal/platform/auth"
)

// Handler exposes the profile and caretaker-link REST API.
type Handler struct {
	svc *Service
}

// NewHandler creates a new identity handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the identity routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/profiles", h.CreateProfile)
	g.GET("/profiles/:uid", h.GetProfile, auth.RequireSelfOrRole("uid", auth.RoleCaretaker))
	g.PUT("/profiles/:uid", h.UpdateProfile, auth.RequireSelfOrRole("uid"))

	g.GET("/caretakers/search", h.FindCaretakerByPhone,
		auth.RequireRole(auth.RolePatient, auth.RoleCaretaker))

	g.GET("/patients/:patientId/caretakers", h.ListCaretakers,
		auth.RequireSelfOrRole("patientId", auth.RoleCaretaker))
	g.POST("/patients/:patientId/caretakers", h.LinkCaretaker,
		auth.RequireSelfOrRole("patientId"))
	g.DELETE("/patients/:patientId/caretakers/:caretakerId", h.UnlinkCaretaker,
		auth.RequireSelfOrRole("patientId"))
}

// CreateProfile handles POST /profiles. The uid always comes from the
// caller's token, never from the request body.
func (h *Handler) CreateProfile(c echo.Context) error {
	var p Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.UID = auth.UserIDFromContext(c.Request().Context())

	created, err := h.svc.CreateProfile(c.Request().Context(), &p)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

// GetProfile handles GET /profiles/:uid.
func (h *Handler) GetProfile(c echo.Context) error {
	p, err := h.svc.GetProfile(c.Request().Context(), c.Param("uid"))
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateProfile handles PUT /profiles/:uid.
func (h *Handler) UpdateProfile(c echo.Context) error {
	var p Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.UID = c.Param("uid")

	updated, err := h.svc.UpdateProfile(c.Request().Context(), &p)
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

// FindCaretakerByPhone handles GET /caretakers/search?phone=...
func (h *Handler) FindCaretakerByPhone(c echo.Context) error {
	p, err := h.svc.FindCaretakerByPhone(c.Request().Context(), c.QueryParam("phone"))
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "caretaker not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// ListCaretakers handles GET /patients/:patientId/caretakers.
func (h *Handler) ListCaretakers(c echo.Context) error {
	caretakers, err := h.svc.ListCaretakers(c.Request().Context(), c.Param("patientId"))
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, caretakers)
}

type linkRequest struct {
	CaretakerID string `json:"caretakerId"`
}

// LinkCaretaker handles POST /patients/:patientId/caretakers.
func (h *Handler) LinkCaretaker(c echo.Context) error {
	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CaretakerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "caretakerId is required")
	}

	err := h.svc.LinkCaretaker(c.Request().Context(), c.Param("patientId"), req.CaretakerID)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyLinked):
		return echo.NewHTTPError(http.StatusConflict, "caretaker already linked")
	case errors.Is(err, ErrNotCaretaker):
		return echo.NewHTTPError(http.StatusBadRequest, "profile is not a caretaker")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// UnlinkCaretaker handles DELETE /patients/:patientId/caretakers/:caretakerId.
func (h *Handler) UnlinkCaretaker(c echo.Context) error {
	err := h.svc.UnlinkCaretaker(c.Request().Context(), c.Param("patientId"), c.Param("caretakerId"))
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotLinked):
		return echo.NewHTTPError(http.StatusNotFound, "caretaker not linked")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
