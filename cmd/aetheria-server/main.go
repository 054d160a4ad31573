package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aetheria/aetheria/internal/chat"
	"github.com/aetheria/aetheria/internal/config"
	"github.com/aetheria/aetheria/internal/geoip"
	"github.com/aetheria/aetheria/internal/interactions"
	"github.com/aetheria/aetheria/internal/location"
	"github.com/aetheria/aetheria/internal/nlu"
	"github.com/aetheria/aetheria/internal/session"
	"github.com/aetheria/aetheria/internal/speech"
	"github.com/aetheria/aetheria/internal/weather"
)

// AppState holds all application services
type AppState struct {
	Logger   *zap.Logger
	Config   *config.Config
	Sessions session.Store
	Sweeper  *session.Sweeper
	Handlers *chat.Handlers
	DB       *bun.DB
}

func main() {
	// Load configuration
	config.Load()

	// Initialize logger with config
	logger := initLogger()
	logger.Info("Configuration loaded", zap.String("source", "config.Load()"))

	// Initialize application state
	as, err := newAppState(logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	// Create HTTP server
	router := setupRouter(as)

	addr := fmt.Sprintf("%s:%d", config.Http().Host, config.Http().Port)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Setup graceful shutdown
	done := setupSignalHandler(as, server, logger)

	// Start the background session cleanup job
	as.Sweeper.Start()
	logger.Info("Session cleanup job scheduled",
		zap.Int("interval_min", config.Session().SweepIntervalMin),
		zap.Int("inactivity_timeout_min", config.Session().InactivityTimeoutMin))

	// Start server
	logger.Info("Starting Aetheria server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates and initializes the application state
func newAppState(logger *zap.Logger) (*AppState, error) {
	sessionCfg := config.Session()
	store := session.NewInMemoryStore(
		sessionCfg.MaxHistory,
		time.Duration(sessionCfg.InactivityTimeoutMin)*time.Minute,
		logger,
	)
	sweeper := session.NewSweeper(store,
		time.Duration(sessionCfg.SweepIntervalMin)*time.Minute, logger)

	weatherCfg := config.Weather()
	weatherClient := weather.NewClient(weatherCfg.BaseURL, weatherCfg.APIKey, weatherCfg.ForecastDays, logger)

	geoipCfg := config.GeoIP()
	geoipClient := geoip.NewClient(geoipCfg.BaseURL, geoipCfg.DefaultCity, logger)

	geminiCfg := config.Gemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}
	gemini := nlu.NewGeminiClient(geminiCfg.BaseURL, geminiCfg.APIKey, geminiCfg.Model, logger)

	speechCfg := config.Speech()
	speechClient := speech.NewGoogleClient(speechCfg.APIKey, speechCfg.STTBaseURL, speechCfg.TTSBaseURL, logger)

	resolver := location.NewResolver(store, geoipClient, weatherClient, logger)

	chatService := chat.NewService(store, gemini, gemini, resolver, weatherClient, speechClient, logger)

	// Turn logs go to Postgres when configured, otherwise stay in memory.
	var db *bun.DB
	var turnStore interactions.Store
	pgCfg := config.Postgres()
	if pgCfg.Enabled {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(pgCfg.DSN())))
		sqldb.SetMaxOpenConns(pgCfg.MaxOpenConnections)
		db = bun.NewDB(sqldb, pgdialect.New())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := db.NewCreateTable().
			Model((*interactions.TurnLog)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to create turn log table: %w", err)
		}

		turnStore = interactions.NewPostgresStore(db)
		logger.Info("Turn logging backed by Postgres",
			zap.String("host", pgCfg.Host),
			zap.String("database", pgCfg.Database))
	} else {
		turnStore = interactions.NewInMemoryStore()
		logger.Info("Turn logging backed by memory, Postgres disabled")
	}

	handlers := chat.NewHandlers(
		chatService,
		store,
		weatherClient,
		weatherClient,
		geoipClient,
		speechClient,
		interactions.NewRecorder(turnStore),
		logger,
	)

	return &AppState{
		Logger:   logger,
		Config:   config.Get(),
		Sessions: store,
		Sweeper:  sweeper,
		Handlers: handlers,
		DB:       db,
	}, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

func setupRouter(as *AppState) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add CORS middleware
	router.Use(cors.Default())

	// Add logging middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Root endpoint kept as a plain liveness probe for load balancers
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Aetheria backend is running!")
	})

	// Health endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"sessions":  as.Sessions.Len(),
		})
	})

	api := router.Group("/api")
	as.Handlers.RegisterRoutes(api)

	return router
}

func setupSignalHandler(as *AppState, server *http.Server, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		// Create context with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Shutdown server
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		// Stop the session cleanup job
		as.Sweeper.Stop()

		// Close the turn log database
		if as.DB != nil {
			if err := as.DB.Close(); err != nil {
				logger.Error("Error closing database", zap.Error(err))
			}
		}

		done <- struct{}{}
	}()

	return done
}
