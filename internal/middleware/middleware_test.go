package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-station/internal/config"
	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, uid uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	}, JWTAuth(secret))

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "Bearer garbage").Code)

	rec := serve(e, http.MethodGet, "/me", bearer(t, 7, model.RoleUser))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"USER"}`, rec.Body.String())
}

func TestAdminOrReadOnly(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(secret), AdminOrReadOnly())
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	g.GET("/trains", ok)
	g.POST("/trains", ok)

	user := bearer(t, 2, model.RoleUser)
	admin := bearer(t, 1, model.RoleAdmin)

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/v1/trains", user).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/v1/trains", user).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/v1/trains", admin).Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.DELETE("/orders/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		JWTAuth(secret), RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodDelete, "/orders/1", bearer(t, 2, model.RoleUser)).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/orders/1", bearer(t, 1, model.RoleAdmin)).Code)
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Hour, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, nil, logger))

	first := serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", "").Code)

	blocked := serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucketDisabled(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, logger))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/trains", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/trains")
	c.Set("user_id", uint64(9))

	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:GET /v1/trains",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}, c))
	assert.Equal(t, "rl:user:9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func TestCacheKeyGroupsByResource(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	key := func(path string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath("/v1/trains/:id")
		return cacheKeyFrom(cfg, c)
	}
	k1, k2 := key("/v1/trains/1"), key("/v1/trains/2")
	assert.NotEqual(t, k1, k2)
	assert.Regexp(t, `^cache:v1/trains:[0-9a-f]{40}$`, k1)
	assert.Equal(t, "v1/stations", resourceOf("/v1/stations/"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"id":1}`))
	require.NoError(t, err)
	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"id":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestCaptureWriterSkipsOversizedBodies(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated())
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated())
}

func TestRequestLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/missing", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "nope") })

	rec := serve(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 404, entry.Data["status"])
	assert.Equal(t, "guest", entry.Data["user_id"])
}
