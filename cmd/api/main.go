package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tamio/tamio-backend/internal/config"
	"github.com/tamio/tamio-backend/internal/database"
	"github.com/tamio/tamio-backend/internal/handler"
	"github.com/tamio/tamio-backend/internal/middleware"
	"github.com/tamio/tamio-backend/internal/repository/postgres"
	"github.com/tamio/tamio-backend/internal/service"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	// Apply migrations
	if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	obligationRepo := postgres.NewObligationRepository(pool)
	scenarioRepo := postgres.NewScenarioRepository(pool)
	ruleRepo := postgres.NewRuleRepository(pool)
	triggerRepo := postgres.NewTriggerRepository(pool)

	// Select the event source for forecasting
	var source service.EventSource
	switch cfg.EventSourceMode {
	case config.ModeObligation:
		source = service.NewObligationSource(obligationRepo, clientRepo, expenseRepo)
	default:
		source = service.NewLegacyClientExpenseSource(clientRepo, expenseRepo)
	}
	log.Info().Str("mode", string(cfg.EventSourceMode)).Msg("Event source configured")

	// Initialize services
	scheduleService := service.NewScheduleService(obligationRepo, log.Logger)
	converter := service.NewStaticCurrencyConverter()
	obligationService := service.NewObligationService(obligationRepo, scheduleService, converter, cfg.BaseCurrency, cfg.UpstreamTimeout, log.Logger)
	accountService := service.NewAccountService(accountRepo)
	clientService := service.NewClientService(clientRepo, obligationService, cfg.DualWrite, log.Logger)
	expenseService := service.NewExpenseService(expenseRepo, obligationService, cfg.DualWrite, log.Logger)
	forecastService := service.NewForecastService(accountRepo, source, cfg.HorizonWeeks, log.Logger)
	ruleService := service.NewRuleService(ruleRepo, log.Logger)
	scenarioService := service.NewScenarioService(scenarioRepo, clientRepo, expenseRepo, accountRepo, source, ruleService, cfg.HorizonWeeks, log.Logger)
	analyticsService := service.NewAnalyticsService(accountRepo, clientRepo, expenseRepo, obligationRepo, ruleRepo, forecastService, log.Logger)
	triggerService := service.NewTriggerService(triggerRepo, analyticsService, scenarioService, log.Logger)

	// Initialize middleware
	userMiddleware := middleware.NewUserMiddleware(userRepo)
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService)
	clientHandler := handler.NewClientHandler(clientService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	forecastHandler := handler.NewForecastHandler(forecastService)
	scenarioHandler := handler.NewScenarioHandler(scenarioService)
	insightsHandler := handler.NewInsightsHandler(analyticsService, triggerService)
	ruleHandler := handler.NewRuleHandler(ruleService, forecastService)
	obligationHandler := handler.NewObligationHandler(obligationService)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, middleware.UserHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, userMiddleware, rateLimiter, accountHandler, clientHandler, expenseHandler, forecastHandler, scenarioHandler, insightsHandler, ruleHandler, obligationHandler)

	// Background workers
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	scheduleWorker := service.NewScheduleWorker(userRepo, scheduleService, cfg.ScheduleSyncInterval, log.Logger)
	go scheduleWorker.Run(workerCtx)

	sweeper := service.NewTriggerSweeper(userRepo, triggerService, cfg.TriggerSweepSpec, log.Logger)
	if err := sweeper.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start trigger sweeper")
	}
	defer sweeper.Stop()

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
