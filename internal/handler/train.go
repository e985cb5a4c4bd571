package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/repository"
)

// TrainStore is the persistence used by TrainHandler.
type TrainStore interface {
	List(ctx context.Context, typeIDs []uint64) ([]repository.TrainListItem, error)
	GetByID(ctx context.Context, id uint64) (*model.Train, error)
	GetDetail(ctx context.Context, id uint64) (*repository.TrainDetail, error)
	Create(ctx context.Context, t *model.Train) error
	Update(ctx context.Context, t *model.Train) error
	Delete(ctx context.Context, id uint64) error
}

type TrainHandler struct {
	Store TrainStore
}

func NewTrainHandler(s TrainStore) *TrainHandler { return &TrainHandler{Store: s} }

const trainTypeFilterError = "train_type query parameter must contain only integers separated by commas. exm:(1, 2)"

type trainReq struct {
	Name          *string `json:"name"`
	TrainType     *uint64 `json:"train_type"`
	CargoNum      *int    `json:"cargo_num"`
	PlacesInCargo *int    `json:"places_in_cargo"`
}

func (r trainReq) apply(t *model.Train, partial bool) fieldErrors {
	errs := fieldErrors{}
	required := func(field string, present bool) bool {
		if !present && !partial {
			errs.add(field, "this field is required")
		}
		return present
	}
	if required("name", r.Name != nil) {
		t.Name = strings.TrimSpace(*r.Name)
	}
	if required("train_type", r.TrainType != nil) {
		t.TrainTypeID = *r.TrainType
	}
	if required("cargo_num", r.CargoNum != nil) {
		t.CargoNum = *r.CargoNum
	}
	if required("places_in_cargo", r.PlacesInCargo != nil) {
		t.PlacesInCargo = *r.PlacesInCargo
	}
	if len(errs) > 0 {
		return errs
	}

	if t.Name == "" {
		errs.add("name", "this field may not be blank")
	}
	if t.TrainTypeID == 0 {
		errs.add("train_type", "invalid train type")
	}
	if t.CargoNum < 1 || t.CargoNum > model.MaxCargoNum {
		errs.add("cargo_num", fmt.Sprintf("ensure this value is between 1 and %d", model.MaxCargoNum))
	}
	if t.PlacesInCargo < 1 || t.PlacesInCargo > model.MaxPlacesInCargo {
		errs.add("places_in_cargo", fmt.Sprintf("ensure this value is between 1 and %d", model.MaxPlacesInCargo))
	}
	return errs
}

// List supports ?train_type=1,2 to restrict by train type ids.
func (h *TrainHandler) List(c echo.Context) error {
	var typeIDs []uint64
	if raw := c.QueryParam("train_type"); raw != "" {
		ids, ok := parseIDList(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": trainTypeFilterError})
		}
		typeIDs = ids
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	out, err := h.Store.List(ctx, typeIDs)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TrainHandler) Get(c echo.Context) error {
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

func (h *TrainHandler) Create(c echo.Context) error {
	var req trainReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	var t model.Train
	if errs := req.apply(&t, false); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Store.Create(ctx, &t); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TrainHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	var req trainReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	t, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	if errs := req.apply(t, c.Request().Method == http.MethodPatch); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	if err := h.Store.Update(ctx, t); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TrainHandler) Delete(c echo.Context) error {
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
