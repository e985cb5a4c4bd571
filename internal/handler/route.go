package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/repository"
)

// RouteStore is the persistence used by RouteHandler.
type RouteStore interface {
	List(ctx context.Context) ([]repository.RouteListItem, error)
	GetByID(ctx context.Context, id uint64) (*model.Route, error)
	GetDetail(ctx context.Context, id uint64) (*repository.RouteDetail, error)
	Create(ctx context.Context, r *model.Route) error
	Update(ctx context.Context, r *model.Route) error
	Delete(ctx context.Context, id uint64) error
}

type RouteHandler struct {
	Store RouteStore
}

func NewRouteHandler(s RouteStore) *RouteHandler { return &RouteHandler{Store: s} }

type routeReq struct {
	Name        *string `json:"name"`
	Source      *uint64 `json:"source"`
	Destination *uint64 `json:"destination"`
	Distance    *int    `json:"distance"`
}

func (r routeReq) apply(rt *model.Route, partial bool) fieldErrors {
	errs := fieldErrors{}
	if r.Name != nil {
		rt.Name = strings.TrimSpace(*r.Name)
	} else if !partial {
		errs.add("name", "this field is required")
	}
	if r.Source != nil {
		rt.SourceID = *r.Source
	} else if !partial {
		errs.add("source", "this field is required")
	}
	if r.Destination != nil {
		rt.DestinationID = *r.Destination
	} else if !partial {
		errs.add("destination", "this field is required")
	}
	if r.Distance != nil {
		rt.Distance = *r.Distance
	} else if !partial {
		errs.add("distance", "this field is required")
	}
	if rt.Name == "" {
		errs.add("name", "this field may not be blank")
	}
	if rt.SourceID == 0 {
		errs.add("source", "invalid station")
	}
	if rt.DestinationID == 0 {
		errs.add("destination", "invalid station")
	}
	return errs
}

func (h *RouteHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	out, err := h.Store.List(ctx)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RouteHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	d, err := h.Store.GetDetail(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *RouteHandler) Create(c echo.Context) error {
	var req routeReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	var rt model.Route
	if errs := req.apply(&rt, false); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Store.Create(ctx, &rt); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, rt)
}

func (h *RouteHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	var req routeReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rt, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	if errs := req.apply(rt, c.Request().Method == http.MethodPatch); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	if err := h.Store.Update(ctx, rt); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}

func (h *RouteHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Store.Delete(ctx, id); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
