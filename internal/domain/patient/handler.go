package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wardops/wardops/internal/platform/fault"
	"github.com/wardops/wardops/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Ids are server-assigned.
	p.PatientID = ""
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Service: c.QueryParam("service")}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.PatientID = c.Param("id")
	updated, err := h.svc.Replace(c.Request().Context(), &p)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Patch(c echo.Context) error {
	var changes map[string]interface{}
	if err := c.Bind(&changes); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(changes) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	updated, err := h.svc.Patch(c.Request().Context(), c.Param("id"), changes)
	if err != nil {
		if errors.Is(err, errNoFields) {
			return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
		}
		if errors.Is(err, errBadPayload) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return fault.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
