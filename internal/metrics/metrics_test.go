package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrder(t *testing.T) {
	beforeCreated := testutil.ToFloat64(orders.WithLabelValues(OutcomeCreated))
	beforeTickets := testutil.ToFloat64(ticketsBooked)

	RecordOrder(OutcomeCreated, 3, time.Millisecond)
	RecordOrder(OutcomeConflict, 2, time.Millisecond)

	assert.Equal(t, beforeCreated+1, testutil.ToFloat64(orders.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, beforeTickets+3, testutil.ToFloat64(ticketsBooked))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/v1/trains/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/trains/:id", "204"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/trains/42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/trains/:id", "204")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordPublish(true)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "train_station_events_published_total")
}
