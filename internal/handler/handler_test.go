package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/repository"
	"github.com/iliyamo/train-station/internal/service"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

// asUser stands in for JWTAuth.
func asUser(uid uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uid)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ----- trains -----

type fakeTrains struct {
	TrainStore
	typeIDs []uint64
	created *model.Train
}

func (f *fakeTrains) List(_ context.Context, typeIDs []uint64) ([]repository.TrainListItem, error) {
	f.typeIDs = typeIDs
	return []repository.TrainListItem{}, nil
}

func (f *fakeTrains) Create(_ context.Context, t *model.Train) error {
	t.ID = 1
	f.created = t
	return nil
}

func TestTrainListTypeFilter(t *testing.T) {
	store := &fakeTrains{}
	h := NewTrainHandler(store)
	e := newEcho()
	e.GET("/trains", h.List)

	rec := do(e, http.MethodGet, "/trains?train_type=1,x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"`+trainTypeFilterError+`"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/trains?train_type=1,%202", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint64{1, 2}, store.typeIDs)

	rec = do(e, http.MethodGet, "/trains", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, store.typeIDs)
}

func TestTrainCreateRangeChecks(t *testing.T) {
	store := &fakeTrains{}
	e := newEcho()
	e.POST("/trains", NewTrainHandler(store).Create)

	rec := do(e, http.MethodPost, "/trains", `{"name":"Hyundai","train_type":1,"cargo_num":21,"places_in_cargo":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"cargo_num":"ensure this value is between 1 and 20","places_in_cargo":"ensure this value is between 1 and 100"}`, rec.Body.String())
	assert.Nil(t, store.created)

	rec = do(e, http.MethodPost, "/trains", `{"name":"Hyundai","train_type":1,"cargo_num":5,"places_in_cargo":20}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, store.created)
	assert.Equal(t, 100, store.created.Capacity())
}

// ----- journeys -----

type fakeJourneys struct {
	JourneyStore
	filter  repository.JourneyFilter
	current model.Journey
	updated bool
}

func (f *fakeJourneys) List(_ context.Context, flt repository.JourneyFilter) ([]repository.JourneyListItem, error) {
	f.filter = flt
	return []repository.JourneyListItem{}, nil
}

func (f *fakeJourneys) GetByID(_ context.Context, id uint64) (*model.Journey, error) {
	if id != f.current.ID {
		return nil, repository.ErrNotFound
	}
	j := f.current
	return &j, nil
}

func (f *fakeJourneys) Update(context.Context, *model.Journey) error {
	f.updated = true
	return nil
}

func (f *fakeJourneys) Create(context.Context, *model.Journey) error { return nil }

func TestJourneyListFilters(t *testing.T) {
	store := &fakeJourneys{}
	e := newEcho()
	e.GET("/journeys", NewJourneyHandler(store).List)

	rec := do(e, http.MethodGet, "/journeys?departure_after=2026-13-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"departure_after must be a date in YYYY-MM-DD format"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/journeys?route=kyiv&train=hyundai&departure_after=2026-05-01&arrival_before=2026-05-02", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kyiv", store.filter.Route)
	assert.Equal(t, "hyundai", store.filter.Train)
	require.NotNil(t, store.filter.DepartureAfter)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *store.filter.DepartureAfter)
	require.NotNil(t, store.filter.ArrivalBefore)
	assert.Nil(t, store.filter.DepartureBefore)
	assert.Nil(t, store.filter.ArrivalAfter)
}

func TestJourneyArrivalMustFollowDeparture(t *testing.T) {
	dep := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	store := &fakeJourneys{current: model.Journey{ID: 3, RouteID: 1, TrainID: 1, DepartureTime: dep, ArrivalTime: dep.Add(time.Hour)}}
	e := newEcho()
	h := NewJourneyHandler(store)
	e.POST("/journeys", h.Create)
	e.PATCH("/journeys/:id", h.Update)

	rec := do(e, http.MethodPost, "/journeys", `{"route":1,"train":1,"departure_time":"2026-05-01T08:00:00Z","arrival_time":"2026-05-01T08:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"arrival_time":"arrival_time must be after departure_time"}`, rec.Body.String())

	rec = do(e, http.MethodPatch, "/journeys/3", `{"arrival_time":"2026-05-01T07:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, store.updated)

	rec = do(e, http.MethodPatch, "/journeys/3", `{"crew":[4]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.updated)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPatch, "/journeys/9", `{}`).Code)
}

// ----- orders -----

type fakeBooking struct {
	err   error
	order *model.Order
	uid   uint64
}

func (f *fakeBooking) PlaceOrder(_ context.Context, uid uint64, _ []service.TicketRequest) (*model.Order, error) {
	f.uid = uid
	return f.order, f.err
}

type fakeOrders struct {
	owner uint64
	order model.Order
}

func (f *fakeOrders) ListByUser(_ context.Context, uid uint64) ([]repository.OrderSummary, error) {
	if uid != f.owner {
		return []repository.OrderSummary{}, nil
	}
	return []repository.OrderSummary{{ID: f.order.ID, CreatedAt: f.order.CreatedAt, Tickets: []string{}}}, nil
}

func (f *fakeOrders) GetByIDForUser(_ context.Context, id, uid uint64) (*model.Order, error) {
	if id != f.order.ID || uid != f.owner {
		return nil, repository.ErrNotFound
	}
	o := f.order
	return &o, nil
}

func (f *fakeOrders) DeleteForUser(_ context.Context, id, uid uint64) error {
	if id != f.order.ID || uid != f.owner {
		return repository.ErrNotFound
	}
	return nil
}

func orderEcho(b OrderPlacer, o OrderReader, uid uint64) *echo.Echo {
	h := NewOrderHandler(b, o)
	e := newEcho()
	g := e.Group("", asUser(uid))
	g.POST("/orders", h.Create)
	g.GET("/orders", h.List)
	g.GET("/orders/:id", h.Get)
	g.DELETE("/orders/:id", h.Delete)
	return e
}

func TestOrderCreateResponses(t *testing.T) {
	const body = `{"tickets":[{"journey":1,"cargo":1,"seat":1},{"journey":1,"cargo":6,"seat":1}]}`

	b := &fakeBooking{order: &model.Order{ID: 10, Tickets: []model.Ticket{}}}
	rec := do(orderEcho(b, &fakeOrders{}, 7), http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint64(7), b.uid)

	b = &fakeBooking{err: &service.TicketError{Index: 1, Field: &service.FieldError{Field: "cargo", Message: "cargo must be within (1, cargo_num): (1, 5)"}}}
	rec = do(orderEcho(b, &fakeOrders{}, 7), http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation_error","ticket_index":1,"tickets":[{},{"cargo":"cargo must be within (1, cargo_num): (1, 5)"}]}`, rec.Body.String())

	b = &fakeBooking{err: &service.ConflictError{Index: 0, JourneyID: 1, Cargo: 1, Seat: 1}}
	rec = do(orderEcho(b, &fakeOrders{}, 7), http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"seat_conflict","message":"seat is already booked","ticket_index":0,"journey":1,"cargo":1,"seat":1}`, rec.Body.String())

	b = &fakeBooking{err: service.ErrEmptyOrder}
	rec = do(orderEcho(b, &fakeOrders{}, 7), http.MethodPost, "/orders", `{"tickets":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"tickets":"at least one ticket is required"}`, rec.Body.String())

	b = &fakeBooking{err: errors.New("db down")}
	rec = do(orderEcho(b, &fakeOrders{}, 7), http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestOrderOwnershipMasking(t *testing.T) {
	orders := &fakeOrders{owner: 7, order: model.Order{ID: 10, UserID: 7, Tickets: []model.Ticket{}}}

	owner := orderEcho(&fakeBooking{}, orders, 7)
	assert.Equal(t, http.StatusOK, do(owner, http.MethodGet, "/orders/10", "").Code)
	assert.Equal(t, http.StatusNoContent, do(owner, http.MethodDelete, "/orders/10", "").Code)

	other := orderEcho(&fakeBooking{}, orders, 8)
	rec := do(other, http.MethodGet, "/orders/10", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, do(other, http.MethodDelete, "/orders/10", "").Code)

	rec = do(other, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestOrderRequiresIdentity(t *testing.T) {
	h := NewOrderHandler(&fakeBooking{}, &fakeOrders{})
	e := newEcho()
	e.GET("/orders", h.List)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/orders", "").Code)
}

// ----- errors -----

func TestErrorHandler(t *testing.T) {
	e := newEcho()
	e.GET("/boom", func(echo.Context) error { return errors.New("boom") })
	e.GET("/teapot", func(echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	rec := do(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/teapot", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"error":"short and stout"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestStoreErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{repository.ErrInvalidReference, http.StatusBadRequest},
		{repository.ErrConstraint, http.StatusBadRequest},
		{repository.ErrConflict, http.StatusConflict},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := newEcho()
		err := tc.err
		e.GET("/", func(c echo.Context) error { return storeError(c, err) })
		assert.Equal(t, tc.code, do(e, http.MethodGet, "/", "").Code, tc.err.Error())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}
