package billing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pacopilot/pacopilot/internal/domain/identity"
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
	readGroup.GET("/coverages", h.ListCoverages)
	readGroup.GET("/coverages/:id", h.GetCoverage)

	writeGroup := api.Group("", auth.RequireRole("admin", "intake"))
	writeGroup.POST("/coverages", h.CreateCoverage)
}

func (h *Handler) CreateCoverage(c echo.Context) error {
	var in EnrollCoverageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cov, err := h.svc.EnrollCoverage(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateExternalID):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, identity.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found: "+in.PatientIdent)
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, cov)
}

// GetCoverage accepts a canonical UUID, an external identifier, or a member
// id in the path.
func (h *Handler) GetCoverage(c echo.Context) error {
	cov, err := h.svc.GetCoverageByIdent(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "coverage not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cov)
}

func (h *Handler) ListCoverages(c echo.Context) error {
	pg := pagination.FromContext(c)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListCoveragesByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListCoverages(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
