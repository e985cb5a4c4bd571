package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/train-station/internal/config"
	"github.com/iliyamo/train-station/internal/database"
	"github.com/iliyamo/train-station/internal/handler"
	"github.com/iliyamo/train-station/internal/jobs"
	"github.com/iliyamo/train-station/internal/logging"
	"github.com/iliyamo/train-station/internal/queue"
	"github.com/iliyamo/train-station/internal/repository"
	"github.com/iliyamo/train-station/internal/router"
	"github.com/iliyamo/train-station/internal/service"
)

func main() {
	boot := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	config.LoadDotEnv(boot)
	cfg := config.Load(boot)
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	entry := log.WithField("env", cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		entry.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db.DB); err != nil {
			entry.WithError(err).Fatal("database migration failed")
		}
		entry.Info("migrations applied")
	}

	rdb := config.NewRedisClient(entry)
	if rdb != nil {
		defer rdb.Close()
	}
	broker := config.LoadBrokerConfig(entry)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	journeys := repository.NewJourneyRepo(db)
	orders := repository.NewOrderRepo(db)

	booking := service.NewBookingService(db, orders, journeys, service.NewPublisher(broker, entry), entry, cfg.AllowEmptyOrders)

	e := router.New(router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, tokens),
		TrainTypes: handler.NewTrainTypeHandler(repository.NewTrainTypeRepo(db)),
		Trains:     handler.NewTrainHandler(repository.NewTrainRepo(db)),
		Stations:   handler.NewStationHandler(repository.NewStationRepo(db)),
		Routes:     handler.NewRouteHandler(repository.NewRouteRepo(db)),
		Crew:       handler.NewCrewHandler(repository.NewCrewRepo(db)),
		Journeys:   handler.NewJourneyHandler(journeys),
		Orders:     handler.NewOrderHandler(booking, orders),
		DB:         db,
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     config.LoadCacheConfig(entry),
		RateLimit: config.LoadRateLimitConfig(entry),
		Redis:     rdb,
		Log:       entry,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if broker.Enabled && broker.Consumer {
		go func() {
			if err := queue.StartOrderConsumer(ctx, broker, entry); err != nil && !errors.Is(err, context.Canceled) {
				entry.WithError(err).Error("order consumer stopped")
			}
		}()
	}

	scheduler := jobs.NewScheduler(entry)
	if err := scheduler.AddTokenCleanup(cfg.TokenCleanupSpec, tokens); err != nil {
		entry.WithError(err).Fatal("invalid job schedule")
	}
	scheduler.Start()

	addr := ":" + cfg.Port
	go func() {
		entry.WithField("addr", addr).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	entry.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Error("server shutdown failed")
	}
	scheduler.Stop(shutdownCtx)
	entry.Info("stopped")
}
