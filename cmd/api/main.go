package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/registry"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/processor"
	"github.com/Ramsey-B/fern/pkg/routes/contact"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	identityroutes "github.com/Ramsey-B/fern/pkg/routes/identity"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}

	normalizers.Configure(cfg.PhoneDefaultCountryCode, cfg.EmailDotInsensitiveDomains)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	store, db := buildStore(cfg, log)
	if db != nil {
		defer db.Close()
	}

	resolver := matching.NewResolver(log, store, resolverConfig(cfg))

	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, log)
		defer producer.Close()
	}
	emitter := events.NewEmitter(producer, log)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		proc := processor.NewProcessor(log, resolver, store, emitter)
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, log, proc.ProcessMessage)
		if err := consumer.Start(context.Background()); err != nil {
			log.WithError(err).Fatal("Failed to start Kafka consumer")
		}
		defer consumer.Stop()
	}

	registerDependencies(log, store, resolver, emitter)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(log)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := buildHealthChecker(db, consumer)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	contact.Register(api.Group("/contacts"))
	identityroutes.Register(api.Group("/identities"))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	go func() {
		checker.SetReady(true)
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server stopped unexpectedly")
		}
	}()

	log.WithFields(map[string]any{
		"app":     cfg.AppName,
		"port":    cfg.Port,
		"backend": cfg.StoreBackend,
	}).Info("Identity service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	checker.SetReady(false)
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Failed to shut down server cleanly")
	}
}

// buildStore selects the identity registry backend. The postgres backend runs
// migrations on startup; the memory backend needs no database at all.
func buildStore(cfg *config.Config, log ectologger.Logger) (identity.Store, database.DB) {
	if cfg.StoreBackend != "postgres" {
		return registry.NewMemory(log, !cfg.AllowDuplicateCanonicalEmail), nil
	}

	db, err := database.Connect(database.ConnectConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	instance, ok := db.(*database.DatabaseInstance)
	if !ok {
		log.Fatal("Unexpected database instance type")
	}

	ms := database.NewMigrationService(log, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := ms.Run(instance.DB, cfg.DatabaseName); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	return registry.NewRepository(db, log), db
}

func resolverConfig(cfg *config.Config) matching.Config {
	mc := matching.DefaultConfig()
	mc.VerificationThreshold = cfg.VerificationThreshold
	mc.ReviewThreshold = cfg.ReviewThreshold
	mc.WeightEmailExact = cfg.WeightEmailExact
	mc.WeightEmailFuzzy = cfg.WeightEmailFuzzy
	mc.WeightNameExact = cfg.WeightNameExact
	mc.WeightNameFuzzy = cfg.WeightNameFuzzy
	mc.WeightPhone = cfg.WeightPhone
	mc.WeightSocialHandle = cfg.WeightSocialHandle
	return mc
}

func registerDependencies(log ectologger.Logger, store identity.Store, resolver *matching.Resolver, emitter *events.Emitter) {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		log.WithError(err).Fatal("Failed to create DI container")
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, log); err != nil {
		log.WithError(err).Fatal("Failed to register logger")
	}
	if err := ectoinject.RegisterInstance[identity.Store](container, store); err != nil {
		log.WithError(err).Fatal("Failed to register identity store")
	}
	if err := ectoinject.RegisterInstance[*matching.Resolver](container, resolver); err != nil {
		log.WithError(err).Fatal("Failed to register resolver")
	}
	if err := ectoinject.RegisterInstance[*events.Emitter](container, emitter); err != nil {
		log.WithError(err).Fatal("Failed to register event emitter")
	}
}

// buildHealthChecker avoids handing typed nils to the checker, which would
// otherwise make a nil *kafka.Consumer look configured
func buildHealthChecker(db database.DB, consumer *kafka.Consumer) *health.Checker {
	var pinger interface{ Ping() error }
	if db != nil {
		pinger = db
	}
	var consumerHealth interface{ Health() bool }
	if consumer != nil {
		consumerHealth = consumer
	}
	return health.NewChecker(pinger, consumerHealth, version)
}
