package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluator/internal/config"
	"github.com/noah-isme/gema-evaluator/internal/handler"
	"github.com/noah-isme/gema-evaluator/internal/middleware"
	"github.com/noah-isme/gema-evaluator/internal/observability"
	"github.com/noah-isme/gema-evaluator/internal/router"
	"github.com/noah-isme/gema-evaluator/internal/service"
	"github.com/noah-isme/gema-evaluator/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	ctx := context.Background()

	tracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.AppName,
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OTELEndpoint,
		Headers:     cfg.OTELHeaders,
	})
	if err != nil {
		log.Fatalf("failed to initialise tracing: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName), nats.MaxReconnects(-1))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, evaluation events disabled")
			natsConn = nil
		}
	}

	factory, err := ai.NewFactory(ai.FactoryConfig{
		Provider:         cfg.AIProvider,
		Sampling:         ai.DefaultSampling(),
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		Logger:           logger,
	})
	if err != nil {
		log.Fatalf("failed to create model invoker factory: %v", err)
	}

	var publisher service.EventPublisher = service.NopEventPublisher{}
	if natsConn != nil {
		publisher = service.NewNATSEventPublisher(natsConn, cfg.NATSSubject, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluationService := service.NewEvaluationService(service.EvaluationConfig{
		Provider:       cfg.AIProvider,
		Regions:        cfg.Regions(),
		Models:         cfg.Models(),
		DefaultRegion:  cfg.DefaultRegion(),
		DefaultModel:   cfg.DefaultModel(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, factory, ai.NewNormalizer(ai.WithLenientParsing(cfg.LenientParsing)), publisher, validate, logger)

	// two documents plus form overhead
	bodyLimit := int(2*cfg.MaxUploadBytes()) + 1<<20

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		Views:        handler.NewViewEngine(),
		BodyLimit:    bodyLimit,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		PageHandler:       handler.NewPageHandler(evaluationService, cfg.AppName, logger),
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, logger),
	})

	logger.Info().
		Str("address", cfg.HTTPAddress()).
		Str("provider", cfg.AIProvider).
		Bool("tracing", tracing.Enabled()).
		Bool("events", natsConn != nil).
		Msg("evaluator starting")

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, tracing, natsConn)
}

func waitForShutdown(app *fiber.App, tracing *observability.Tracing, natsConn *nats.Conn) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			log.Printf("nats drain failed: %v", err)
		}
	}
	if err := tracing.Shutdown(ctx); err != nil {
		log.Printf("tracing shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
