package staff

import (
	"errors"
	"fmt"
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
	api.POST("/staff", h.Create)
	api.GET("/staff", h.List)
	api.GET("/staff/:id", h.Get)
	api.PUT("/staff/:id", h.Update)
	api.PATCH("/staff/:id", h.Patch)
	api.DELETE("/staff/:id", h.Delete)
}

// Role and service enums are a transport-level restriction mirroring the
// original request models. Store-level writes are not constrained by
// them.
var validStaffRoles = map[string]bool{
	"doctor":            true,
	"nurse":             true,
	"nursing_assistant": true,
	"ADMIN":             true,
}

var validServiceTypes = map[string]bool{
	"emergency":        true,
	"surgery":          true,
	"general_medicine": true,
	"ICU":              true,
	"FRONT DESK":       true,
}

func checkEnums(role, service *string) error {
	if role != nil && !validStaffRoles[*role] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid role: %s", *role))
	}
	if service != nil && !validServiceTypes[*service] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid service: %s", *service))
	}
	return nil
}

func (h *Handler) Create(c echo.Context) error {
	var st Staff
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := checkEnums(st.Role, st.Service); err != nil {
		return err
	}
	// Ids are server-assigned.
	st.StaffID = ""
	if err := h.svc.Create(c.Request().Context(), &st); err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) Get(c echo.Context) error {
	st, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Service: c.QueryParam("service"),
		Role:    c.QueryParam("role"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	var st Staff
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := checkEnums(st.Role, st.Service); err != nil {
		return err
	}
	st.StaffID = c.Param("id")
	updated, err := h.svc.Replace(c.Request().Context(), &st)
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
	if v, ok := changes["role"].(string); ok && !validStaffRoles[v] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid role: %s", v))
	}
	if v, ok := changes["service"].(string); ok && !validServiceTypes[v] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid service: %s", v))
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
