package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-station/internal/model"
)

// TrainTypeStore is the persistence used by TrainTypeHandler.
type TrainTypeStore interface {
	List(ctx context.Context) ([]model.TrainType, error)
	GetByID(ctx context.Context, id uint64) (*model.TrainType, error)
	Create(ctx context.Context, tt *model.TrainType) error
	Update(ctx context.Context, tt *model.TrainType) error
	Delete(ctx context.Context, id uint64) error
}

type TrainTypeHandler struct {
	Store TrainTypeStore
}

func NewTrainTypeHandler(s TrainTypeStore) *TrainTypeHandler { return &TrainTypeHandler{Store: s} }

type trainTypeReq struct {
	Name *string `json:"name"`
}

func (r trainTypeReq) apply(tt *model.TrainType, partial bool) fieldErrors {
	errs := fieldErrors{}
	if r.Name != nil {
		tt.Name = strings.TrimSpace(*r.Name)
	} else if !partial {
		errs.add("name", "this field is required")
	}
	if tt.Name == "" {
		errs.add("name", "this field may not be blank")
	}
	return errs
}

func (h *TrainTypeHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	out, err := h.Store.List(ctx)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TrainTypeHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	tt, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, tt)
}

func (h *TrainTypeHandler) Create(c echo.Context) error {
	var req trainTypeReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	var tt model.TrainType
	if errs := req.apply(&tt, false); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Store.Create(ctx, &tt); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, tt)
}

// Update serves PUT (all fields) and PATCH (given fields only).
func (h *TrainTypeHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	var req trainTypeReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	tt, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	if errs := req.apply(tt, c.Request().Method == http.MethodPatch); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	if err := h.Store.Update(ctx, tt); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, tt)
}

func (h *TrainTypeHandler) Delete(c echo.Context) error {
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
