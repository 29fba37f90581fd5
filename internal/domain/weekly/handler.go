package weekly

import (
	"errors"
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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/services-weekly")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/metrics", h.Metrics)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var rep Report
	if err := c.Bind(&rep); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Ids are server-assigned.
	rep.ID = 0
	if err := h.svc.Create(c.Request().Context(), &rep); err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rep, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Service: c.QueryParam("service")}
	if raw := c.QueryParam("week"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid week")
		}
		f.Week = &v
	}
	if raw := c.QueryParam("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid month")
		}
		f.Month = &v
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Metrics(c echo.Context) error {
	service := c.QueryParam("service")
	week, errWeek := strconv.Atoi(c.QueryParam("week"))
	month, errMonth := strconv.Atoi(c.QueryParam("month"))
	if service == "" || errWeek != nil || errMonth != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "service, week and month are required")
	}
	rep, err := h.svc.Metrics(c.Request().Context(), service, week, month)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var rep Report
	if err := c.Bind(&rep); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rep.ID = id
	updated, err := h.svc.Replace(c.Request().Context(), &rep)
	if err != nil {
		return fault.HTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Patch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var changes map[string]interface{}
	if err := c.Bind(&changes); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(changes) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	updated, err := h.svc.Patch(c.Request().Context(), id, changes)
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
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return fault.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
