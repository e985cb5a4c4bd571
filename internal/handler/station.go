package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/repository"
)

// StationStore is the persistence used by StationHandler.
type StationStore interface {
	List(ctx context.Context, name string) ([]repository.StationSummary, error)
	GetByID(ctx context.Context, id uint64) (*model.Station, error)
	GetDetail(ctx context.Context, id uint64) (*repository.StationDetail, error)
	Create(ctx context.Context, s *model.Station) error
	Update(ctx context.Context, s *model.Station) error
	Delete(ctx context.Context, id uint64) error
}

type StationHandler struct {
	Store StationStore
}

func NewStationHandler(s StationStore) *StationHandler { return &StationHandler{Store: s} }

type stationReq struct {
	Name      *string  `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r stationReq) apply(s *model.Station, partial bool) fieldErrors {
	errs := fieldErrors{}
	if r.Name != nil {
		s.Name = strings.TrimSpace(*r.Name)
	} else if !partial {
		errs.add("name", "this field is required")
	}
	if r.Latitude != nil {
		s.Latitude = *r.Latitude
	} else if !partial {
		errs.add("latitude", "this field is required")
	}
	if r.Longitude != nil {
		s.Longitude = *r.Longitude
	} else if !partial {
		errs.add("longitude", "this field is required")
	}
	if s.Name == "" {
		errs.add("name", "this field may not be blank")
	}
	return errs
}

// List supports ?name= for a case-insensitive substring match.
func (h *StationHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	out, err := h.Store.List(ctx, c.QueryParam("name"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StationHandler) Get(c echo.Context) error {
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

func (h *StationHandler) Create(c echo.Context) error {
	var req stationReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	var s model.Station
	if errs := req.apply(&s, false); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Store.Create(ctx, &s); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *StationHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	var req stationReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	s, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	if errs := req.apply(s, c.Request().Method == http.MethodPatch); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	if err := h.Store.Update(ctx, s); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *StationHandler) Delete(c echo.Context) error {
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
