package auditlog

import (
	"net/http"
	"strconv"

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

// RegisterRoutes exposes the audit log read-only. Entries are written
// exclusively by the write path.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit-log", h.List)
	api.GET("/audit-log/:id", h.Get)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Table:     c.QueryParam("table_name"),
		RowPK:     c.QueryParam("row_pk"),
		Operation: c.QueryParam("operation"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}
