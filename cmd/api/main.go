package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/structured-pricer/config"
	"github.com/rzzdr/structured-pricer/internal/builder"
	"github.com/rzzdr/structured-pricer/internal/kafka"
	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/internal/valuation"
	"github.com/rzzdr/structured-pricer/pkg/api"
	"github.com/rzzdr/structured-pricer/pkg/metrics"
	"github.com/rzzdr/structured-pricer/pkg/utils/backpressure"
	"github.com/rzzdr/structured-pricer/pkg/utils/circuit"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file (defaults to PRICER_CONFIG_PATH or ./config/config.yaml)")
)

func main() {
	// Parse command line flags
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("api.main")
	log.Infof("Starting %s (%s)", cfg.App.Name, cfg.App.Environment)

	// Metrics
	registry := metrics.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	// Valuation engine
	engine := valuation.NewEngine(valuation.EngineConfig{
		Simulation: pricing.SimulatorConfig{
			Paths:     cfg.Pricing.SimulationPaths,
			Seed:      cfg.Pricing.Seed,
			Randomize: cfg.Pricing.RandomizeSeed,
			Workers:   cfg.Pricing.Workers,
			ChunkSize: cfg.Pricing.ChunkSize,
		},
		DefaultWarrantUnits: cfg.Pricing.WarrantUnits,
	})

	// Optional valuation event publisher, fed through a bounded queue
	var (
		publisher  *kafka.Publisher
		dispatcher *valuation.Dispatcher
	)
	if cfg.Kafka.Enabled {
		overflow, err := backpressure.ParseStrategy(cfg.Kafka.Overflow)
		if err != nil {
			log.Fatalf("Invalid kafka.overflow: %v", err)
		}

		publisher, err = kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Breaker: circuit.Config{
				MaxFailures: cfg.Kafka.Breaker.MaxFailures,
				Timeout:     cfg.Kafka.Breaker.Timeout,
				MaxRequests: cfg.Kafka.Breaker.MaxRequests,
			},
		})
		if err != nil {
			log.Fatalf("Failed to create valuation publisher: %v", err)
		}
		publisher.WithRecorder(recorder)

		dispatcher = valuation.NewDispatcher(publisher, valuation.DispatcherConfig{
			QueueSize: cfg.Kafka.QueueSize,
			Strategy:  overflow,
		})
		engine.WithSink(dispatcher)
	} else {
		log.Info("Valuation publishing disabled")
	}

	productBuilder := builder.NewBuilder(engine, builder.DefaultScoringPolicy())

	handlers := api.CreateHandlers(engine, productBuilder, recorder, cfg.Pricing.RiskFreeRate)
	if publisher != nil {
		handlers.WithPublisher(publisher, dispatcher)
	}

	apiServer := api.NewServer(
		api.Config{
			Host:         cfg.API.Host,
			Port:         cfg.API.Port,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
			RateLimit:    cfg.API.RateLimit,
			RateBurst:    cfg.API.RateBurst,
			CORS: api.CORSConfig{
				AllowedOrigins: cfg.API.CORS.AllowedOrigins,
				AllowedMethods: cfg.API.CORS.AllowedMethods,
				AllowedHeaders: cfg.API.CORS.AllowedHeaders,
			},
		},
		handlers,
		recorder,
		registry,
	)

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, registry)
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(apiServer.Start)
	if promServer != nil {
		g.Go(promServer.Start)
	}
	if dispatcher != nil {
		// Runs past cancellation so the backlog is flushed before the writer closes
		g.Go(func() error { return dispatcher.Run(context.Background()) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Initiating shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.API.ShutdownTimeout))
		defer cancel()

		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Errorf("API server shutdown error: %v", err)
		}
		if promServer != nil {
			if err := promServer.Stop(shutdownCtx); err != nil {
				log.Errorf("Prometheus server shutdown error: %v", err)
			}
		}
		if dispatcher != nil {
			dispatcher.Close()
		}
		return nil
	})

	err = g.Wait()

	if publisher != nil {
		if cerr := publisher.Close(); cerr != nil {
			log.Errorf("Valuation publisher shutdown error: %v", cerr)
		}
	}

	if err != nil {
		log.Errorf("Server error: %v", err)
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("Shutdown complete")
	_ = log.Sync()
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
