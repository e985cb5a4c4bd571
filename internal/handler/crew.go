package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/repository"
)

// CrewStore is the persistence used by CrewHandler.
type CrewStore interface {
	List(ctx context.Context) ([]repository.CrewListItem, error)
	GetByID(ctx context.Context, id uint64) (*model.Crew, error)
	Create(ctx context.Context, c *model.Crew) error
	Update(ctx context.Context, c *model.Crew) error
	Delete(ctx context.Context, id uint64) error
}

type CrewHandler struct {
	Store CrewStore
}

func NewCrewHandler(s CrewStore) *CrewHandler { return &CrewHandler{Store: s} }

type crewReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (r crewReq) apply(m *model.Crew, partial bool) fieldErrors {
	errs := fieldErrors{}
	if r.FirstName != nil {
		m.FirstName = strings.TrimSpace(*r.FirstName)
	} else if !partial {
		errs.add("first_name", "this field is required")
	}
	if r.LastName != nil {
		m.LastName = strings.TrimSpace(*r.LastName)
	} else if !partial {
		errs.add("last_name", "this field is required")
	}
	if m.FirstName == "" {
		errs.add("first_name", "this field may not be blank")
	}
	if m.LastName == "" {
		errs.add("last_name", "this field may not be blank")
	}
	return errs
}

func (h *CrewHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	out, err := h.Store.List(ctx)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CrewHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *CrewHandler) Create(c echo.Context) error {
	var req crewReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	var m model.Crew
	if errs := req.apply(&m, false); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Store.Create(ctx, &m); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *CrewHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	var req crewReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	if errs := req.apply(m, c.Request().Method == http.MethodPatch); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	if err := h.Store.Update(ctx, m); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *CrewHandler) Delete(c echo.Context) error {
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
