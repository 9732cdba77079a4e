package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lethabomaepa11/rocketsales-sub001/config"
	"github.com/lethabomaepa11/rocketsales-sub001/handler"
	"github.com/lethabomaepa11/rocketsales-sub001/middleware"
	"github.com/lethabomaepa11/rocketsales-sub001/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	store     service.Store
	archive   *service.ArchiveService
	metrics   *service.Metrics
	contracts *service.ContractService
	renewals  *service.RenewalService
	alerts    *service.AlertService
}

func newApp(ctx context.Context, cfg *config.Config, clock service.Clock) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.Store.Driver {
	case "postgres":
		db, err := service.OpenPostgres(ctx, &cfg.Store)
		if err != nil {
			return nil, err
		}
		pg := service.NewPostgresStore(db)
		if cfg.Store.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate schema: %w", err)
			}
		}
		a.db = db
		a.store = pg
	default:
		a.store = service.NewMemoryStore()
	}

	recorders := service.Recorders{service.LogRecorder{}}
	if cfg.Archive.Enabled {
		archive, err := service.NewArchiveService(&cfg.Archive)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.archive = archive
		recorders = append(recorders, archive)
	}

	if cfg.Metrics.Enabled {
		a.metrics = service.NewMetrics("contracts")
	}

	opts := service.Options{
		Clock:             clock,
		Events:            recorders,
		Metrics:           a.metrics,
		DefaultNoticeDays: cfg.Contracts.DefaultNoticeDays,
		DefaultCurrency:   cfg.Contracts.DefaultCurrency,
	}
	a.contracts = service.NewContractService(a.store, opts)
	a.renewals = service.NewRenewalService(a.store, a.contracts, opts)
	a.alerts = service.NewAlertService(a.store, opts)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) router() *gin.Engine {
	cfg := a.cfg
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	router.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if a.db != nil {
			if err := a.db.PingContext(c.Request.Context()); err != nil {
				status, code = "database unavailable", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	if a.metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	// A nil *ArchiveService must not become a non-nil HistoryReader.
	var history handler.HistoryReader
	if a.archive != nil {
		history = a.archive
	}

	authHandler := handler.NewAuthHandler(cfg)

	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	protected.GET("/auth/me", authHandler.GetCurrentUser)
	handler.RegisterRoutes(protected,
		handler.NewContractHandler(a.contracts, a.renewals, history),
		handler.NewRenewalHandler(a.renewals),
		handler.NewAlertHandler(a.alerts),
	)

	return router
}
