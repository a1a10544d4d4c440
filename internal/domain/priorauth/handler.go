package priorauth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pacopilot/pacopilot/internal/platform/auth"
	"github.com/pacopilot/pacopilot/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "intake"))
	readGroup.GET("/requirements", h.GetRequirements)
	readGroup.GET("/prior-auth/requests", h.ListRequests)
	readGroup.GET("/prior-auth/requests/:id", h.GetRequest)

	writeGroup := api.Group("", auth.RequireRole("admin", "clinician"))
	writeGroup.POST("/prior-auth/requests", h.CreateRequest)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/prior-auth/overrides", h.CreateOverride)
	adminGroup.GET("/prior-auth/overrides", h.ListOverrides)
	adminGroup.DELETE("/prior-auth/overrides/:id", h.DeleteOverride)
}

// GetRequirements answers whether a code needs authorization without
// creating anything.
func (h *Handler) GetRequirements(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	return c.JSON(http.StatusOK, h.svc.Requirements(code))
}

func (h *Handler) CreateRequest(c echo.Context) error {
	var in CreateRequestInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.CreateRequest(c.Request().Context(), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.GetRequest(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListRequests(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := Status(c.QueryParam("status"))
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListRequestsByPatient(c.Request().Context(), pid, status, pg.Limit, pg.Offset)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListRequests(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateOverride(c echo.Context) error {
	var o PolicyOverride
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateOverride(c.Request().Context(), &o); err != nil {
		if errors.Is(err, ErrDuplicateOverride) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOverrides(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOverrides(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteOverride(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrOverrideNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "policy override not found")
		}
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mapError translates core error types onto HTTP statuses: resolver misses
// are 404, constraint rejections 409, everything else is treated as a bad
// request because core errors are caller-attributable.
func mapError(err error) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return echo.NewHTTPError(http.StatusNotFound, nf.Error())
	}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return echo.NewHTTPError(http.StatusConflict, ce.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
