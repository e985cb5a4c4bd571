package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/repository"
)

// JourneyStore is the persistence used by JourneyHandler.
type JourneyStore interface {
	List(ctx context.Context, f repository.JourneyFilter) ([]repository.JourneyListItem, error)
	GetByID(ctx context.Context, id uint64) (*model.Journey, error)
	GetDetail(ctx context.Context, id uint64) (*repository.JourneyDetail, error)
	Create(ctx context.Context, j *model.Journey) error
	Update(ctx context.Context, j *model.Journey) error
	Delete(ctx context.Context, id uint64) error
}

// JourneyHandler serves journeys.  Responses are never cached because
// tickets_available changes with every order.
type JourneyHandler struct {
	Store JourneyStore
}

func NewJourneyHandler(s JourneyStore) *JourneyHandler { return &JourneyHandler{Store: s} }

type journeyReq struct {
	Route         *uint64    `json:"route"`
	Train         *uint64    `json:"train"`
	DepartureTime *time.Time `json:"departure_time"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	Crew          *[]uint64  `json:"crew"`
}

func (r journeyReq) apply(j *model.Journey, partial bool) fieldErrors {
	errs := fieldErrors{}
	if r.Route != nil {
		j.RouteID = *r.Route
	} else if !partial {
		errs.add("route", "this field is required")
	}
	if r.Train != nil {
		j.TrainID = *r.Train
	} else if !partial {
		errs.add("train", "this field is required")
	}
	if r.DepartureTime != nil {
		j.DepartureTime = r.DepartureTime.UTC()
	} else if !partial {
		errs.add("departure_time", "this field is required")
	}
	if r.ArrivalTime != nil {
		j.ArrivalTime = r.ArrivalTime.UTC()
	} else if !partial {
		errs.add("arrival_time", "this field is required")
	}
	if r.Crew != nil {
		j.CrewIDs = *r.Crew
	}
	if j.CrewIDs == nil {
		j.CrewIDs = []uint64{}
	}
	if len(errs) > 0 {
		return errs
	}
	if j.RouteID == 0 {
		errs.add("route", "invalid route")
	}
	if j.TrainID == 0 {
		errs.add("train", "invalid train")
	}
	if !j.ArrivalTime.After(j.DepartureTime) {
		errs.add("arrival_time", "arrival_time must be after departure_time")
	}
	return errs
}

// List filters by route/train name substring and inclusive YYYY-MM-DD
// bounds on departure and arrival days.
func (h *JourneyHandler) List(c echo.Context) error {
	f := repository.JourneyFilter{
		Route: c.QueryParam("route"),
		Train: c.QueryParam("train"),
	}
	days := []struct {
		param string
		dst   **time.Time
	}{
		{"departure_after", &f.DepartureAfter},
		{"departure_before", &f.DepartureBefore},
		{"arrival_after", &f.ArrivalAfter},
		{"arrival_before", &f.ArrivalBefore},
	}
	for _, d := range days {
		v, err := parseDay(c.QueryParam(d.param))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": d.param + " must be a date in YYYY-MM-DD format"})
		}
		*d.dst = v
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	out, err := h.Store.List(ctx, f)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *JourneyHandler) Get(c echo.Context) error {
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

func (h *JourneyHandler) Create(c echo.Context) error {
	var req journeyReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	var j model.Journey
	if errs := req.apply(&j, false); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Store.Create(ctx, &j); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, j)
}

func (h *JourneyHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	var req journeyReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	j, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	if errs := req.apply(j, c.Request().Method == http.MethodPatch); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	if err := h.Store.Update(ctx, j); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *JourneyHandler) Delete(c echo.Context) error {
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
