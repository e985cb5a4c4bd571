package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/train-station/internal/config"
	"github.com/iliyamo/train-station/internal/handler"
	"github.com/iliyamo/train-station/internal/metrics"
	"github.com/iliyamo/train-station/internal/middleware"
	"github.com/iliyamo/train-station/internal/model"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth       *handler.AuthHandler
	TrainTypes *handler.TrainTypeHandler
	Trains     *handler.TrainHandler
	Stations   *handler.StationHandler
	Routes     *handler.RouteHandler
	Crew       *handler.CrewHandler
	Journeys   *handler.JourneyHandler
	Orders     *handler.OrderHandler
	DB         handler.Pinger
}

// Options carries the middleware settings.  Redis may be nil, in which
// case the cache is skipped and rate limiting runs in process.
type Options struct {
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Log       logrus.FieldLogger
}

// crud is the handler shape shared by reference resources.
type crud interface {
	List(c echo.Context) error
	Get(c echo.Context) error
	Create(c echo.Context) error
	Update(c echo.Context) error
	Delete(c echo.Context) error
}

// New builds the echo instance with global middleware and every route.
func New(h Handlers, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger(opt.Log))

	RegisterRoutes(e, h.DB)
	limiter := middleware.NewTokenBucket(opt.RateLimit, opt.Redis, opt.Log)
	RegisterAuth(e, h.Auth, opt.JWTSecret, limiter)

	v1 := e.Group("/v1", middleware.JWTAuth(opt.JWTSecret), limiter)
	cache := middleware.NewRedisCache(opt.Cache, opt.Redis, opt.Log)
	registerCRUD(v1.Group("/train-types", middleware.AdminOrReadOnly(), cache), h.TrainTypes)
	registerCRUD(v1.Group("/trains", middleware.AdminOrReadOnly(), cache), h.Trains)
	registerCRUD(v1.Group("/stations", middleware.AdminOrReadOnly(), cache), h.Stations)
	registerCRUD(v1.Group("/routes", middleware.AdminOrReadOnly(), cache), h.Routes)
	registerCRUD(v1.Group("/crew", middleware.AdminOrReadOnly(), cache), h.Crew)
	// journeys carry live availability and are never cached
	registerCRUD(v1.Group("/journeys", middleware.AdminOrReadOnly()), h.Journeys)
	RegisterOrders(v1, h.Orders)
	return e
}

// RegisterRoutes registers the operational endpoints that need no
// authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the account endpoints.  Register, token and
// logout are public; /me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/user", limiter)
	g.POST("/register", a.Register)
	g.POST("/token", a.Login)
	g.POST("/token/refresh", a.Refresh)
	g.POST("/token/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	me := g.Group("/me", middleware.JWTAuth(jwtSecret))
	me.GET("", a.Me)
	me.PUT("", a.UpdateMe)
	me.PATCH("", a.UpdateMe)
}

// RegisterOrders registers the order endpoints on an authenticated group.
// Deleting an order is reserved for administrators.
func RegisterOrders(g *echo.Group, o *handler.OrderHandler) {
	g.POST("/orders", o.Create)
	g.GET("/orders", o.List)
	g.GET("/orders/:id", o.Get)
	g.DELETE("/orders/:id", o.Delete, middleware.RequireRole(model.RoleAdmin))
}

func registerCRUD(g *echo.Group, h crud) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
