package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/adapter/ai/openai"
	"github.com/seu-repo/alfa-voz/internal/adapter/cache"
	"github.com/seu-repo/alfa-voz/internal/adapter/credential"
	"github.com/seu-repo/alfa-voz/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/alfa-voz/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/alfa-voz/internal/adapter/queue"
	"github.com/seu-repo/alfa-voz/internal/adapter/vault"
	wsAdapter "github.com/seu-repo/alfa-voz/internal/adapter/websocket"
	"github.com/seu-repo/alfa-voz/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/alfa-voz/internal/observability/telemetry"
	"github.com/seu-repo/alfa-voz/internal/ports"
	credentialService "github.com/seu-repo/alfa-voz/internal/service/credential"
	"github.com/seu-repo/alfa-voz/internal/service/health"
	"github.com/seu-repo/alfa-voz/internal/service/panel"
	"github.com/seu-repo/alfa-voz/internal/service/voice"
	"github.com/seu-repo/alfa-voz/pkg/config"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Starting voice command service",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("wake_word", cfg.Voice.WakeWord),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry.ServiceName, cfg.App.Version, cfg.OpenTelemetry.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 4. Initialize Cache (Redis, or in-process when disabled)
	panelCache, err := newCache(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer panelCache.Close()

	// 5. Initialize Message Queue
	messageQueue, err := newMessageQueue(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message queue", zap.Error(err))
	}
	if messageQueue != nil {
		defer messageQueue.Close()
	}

	// 6. Initialize Outputs (panel, websocket hub, queue publisher, log)
	panelService := panel.NewService(panelCache, cfg.Voice.Language, logger)
	if err := panelService.Restore(ctx); err != nil {
		logger.Warn("Could not restore panel", zap.Error(err))
	}
	panelDone := make(chan struct{})
	go func() {
		defer close(panelDone)
		panelService.Run(ctx)
	}()

	wsHub := wsAdapter.NewHub(logger)
	go wsHub.Run(ctx)

	logSink := voice.NewLogSink(logger)
	commands := voice.CommandSinks{logSink, panelService, wsHub}
	status := voice.StatusSinks{logSink, panelService, wsHub}
	if messageQueue != nil {
		publisher := queue.NewPublisher(messageQueue, cfg.Queue.CommandsSubject, cfg.Queue.StatusSubject, logger)
		commands = append(commands, publisher)
		status = append(status, publisher)
	}

	// 7. Initialize Credential Service
	source, err := newCredentialSource(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize credential source", zap.Error(err))
	}
	credentials := credentialService.NewService(source, status, cfg.Credential.Timeout, logger)
	go credentials.Warm(ctx)

	// 8. Initialize Classifiers
	rules := voice.DefaultRules()
	if len(cfg.Classifier.LocalRules) > 0 {
		rules, err = voice.RulesFromConfig(cfg.Classifier.LocalRules)
		if err != nil {
			logger.Fatal("Invalid local rules", zap.Error(err))
		}
	}

	openaiClient := newHTTPClient("openai", cfg.Classifier.Timeout, cfg.CircuitBreaker, logger)
	classifier := openai.NewClassifier(logger,
		openai.WithEndpoint(cfg.Classifier.Endpoint),
		openai.WithModel(cfg.Classifier.Model),
		openai.WithTimeout(cfg.Classifier.Timeout),
		openai.WithHTTPClient(openaiClient),
	)

	// 9. Initialize Voice Assistant
	assistant, err := voice.NewAssistant(voice.Config{
		Machine:     voice.NewActivityMachine(cfg.Voice.WakeWord, cfg.Voice.IdleTimeout),
		Local:       voice.NewLocalClassifier(rules),
		Remote:      classifier,
		Credentials: credentials,
		Commands:    commands,
		Status:      status,
		WakeWord:    cfg.Voice.WakeWord,
		QueueSize:   cfg.Voice.QueueSize,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize voice assistant", zap.Error(err))
	}

	var sources []ports.TranscriptSource
	if messageQueue != nil {
		sources = append(sources, queue.NewSubscriber(messageQueue, cfg.Queue.TranscriptsSubject, logger))
	}

	// 10. Initialize Fiber HTTP Server
	var app *fiber.App
	if cfg.HTTP.Enabled {
		app = fiber.New(fiber.Config{
			AppName:               cfg.App.Name,
			ServerHeader:          cfg.App.Name,
			DisableStartupMessage: true,
			ReadTimeout:           cfg.HTTP.ReadTimeout,
			WriteTimeout:          cfg.HTTP.WriteTimeout,
			ErrorHandler:          middleware.ErrorHandler(logger),
		})

		app.Use(recover.New())
		app.Use(fiberlogger.New())
		app.Use(middleware.NewCORS(cfg.HTTP.AllowedOrigins))

		healthService := health.NewService(cfg.App.Version, logger)
		healthService.RegisterChecker("cache", health.PingChecker(panelCache, logger))
		healthService.RegisterChecker("credential", health.CredentialChecker(credentials))
		if breaker, ok := openaiClient.(health.BreakerState); ok {
			healthService.RegisterChecker("openai", health.BreakerChecker(breaker))
		}
		health.NewFiberHandler(healthService).RegisterRoutes(app)
		if cfg.Prometheus.Enabled {
			app.Get(cfg.Prometheus.Path, handlers.Metrics())
		}

		voiceHandler := handlers.NewVoiceHandler(panelService, logger)
		sources = append(sources, voiceHandler)

		auth := middleware.JWTAuth(cfg.Security.JWTSecret, cfg.Security.Issuer)
		v1 := app.Group("/api/v1", auth)
		if cfg.CircuitBreaker.Enabled {
			v1.Use(middleware.CircuitBreaker("api", logger))
		}
		v1.Post("/voice/transcripts", voiceHandler.SubmitTranscript)
		v1.Get("/voice/status", voiceHandler.GetStatus)

		if cfg.HTTP.WebSocket {
			voiceStream := wsAdapter.NewVoiceStreamHandler(logger)
			sources = append(sources, voiceStream)
			wsAdapter.SetupRoutes(app, voiceStream, wsHub, auth)
		}

		go func() {
			logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
			if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
				logger.Fatal("HTTP Server failed", zap.Error(err))
			}
		}()
	}

	// 11. Run the pipeline until a shutdown signal arrives
	if err := assistant.Serve(ctx, sources...); err != nil {
		if errors.Is(err, voice.ErrCaptureUnavailable) {
			logger.Fatal("No transcript source configured", zap.Error(err))
		}
		logger.Error("Voice assistant stopped", zap.Error(err))
	}

	// 12. Graceful Shutdown
	logger.Info("Shutting down server...")

	if app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	<-panelDone
	logger.Info("Server exited gracefully")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" || cfg.Level == "debug" {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level %q: %w", cfg.Level, err)
	}
	zcfg.Level = level

	return zcfg.Build()
}

func newCache(cfg config.RedisConfig, logger *zap.Logger) (ports.Cache, error) {
	if !cfg.Enabled {
		return cache.NewLocalCache(cfg.TTL, logger), nil
	}

	opts := []cache.Option{cache.WithPrefix(cfg.Prefix)}
	if cfg.TTL > 0 {
		opts = append(opts, cache.WithTTL(cfg.TTL))
	}
	return cache.NewRedisCache(cfg.URL, logger, opts...)
}

func newMessageQueue(cfg *config.Config, logger *zap.Logger) (queue.MessageQueue, error) {
	switch cfg.Queue.Driver {
	case config.QueueDriverNATS:
		nq, err := queue.NewNATSQueue(cfg.Queue.URL, cfg.App.Name, logger)
		if err != nil {
			return nil, err
		}
		return nq, nil
	case config.QueueDriverRabbitMQ:
		rq, err := queue.NewRabbitMQQueue(cfg.Queue.URL, logger)
		if err != nil {
			return nil, err
		}
		return rq, nil
	default:
		return nil, nil
	}
}

func newCredentialSource(cfg *config.Config, logger *zap.Logger) (ports.CredentialSource, error) {
	switch cfg.Credential.Source {
	case config.CredentialSourceVault:
		v := cfg.Credential.Vault
		return vault.NewSecretManager(v.Address, v.Token, v.Path, v.Field)
	case config.CredentialSourceStatic:
		return credential.NewStaticSource(cfg.Credential.Static), nil
	default:
		client := newHTTPClient("keystore", cfg.Credential.Timeout, cfg.CircuitBreaker, logger)
		return credential.NewKeystoreSource(cfg.Credential.URL, cfg.Credential.Field, client, logger), nil
	}
}

func newHTTPClient(name string, timeout time.Duration, cfg config.CircuitBreakerConfig, logger *zap.Logger) circuitbreaker.Doer {
	base := &http.Client{Timeout: timeout}
	if !cfg.Enabled {
		return base
	}

	settings := circuitbreaker.DefaultHTTPClientSettings(name)
	settings.Timeout = timeout
	if cfg.MaxRequests > 0 {
		settings.MaxRequests = uint32(cfg.MaxRequests)
	}
	if cfg.Interval > 0 {
		settings.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		settings.BreakerTimeout = cfg.Timeout
	}
	if cfg.FailureThreshold > 0 {
		settings.FailureThreshold = uint32(cfg.FailureThreshold)
	}
	return circuitbreaker.NewHTTPClient(base, settings, logger)
}
