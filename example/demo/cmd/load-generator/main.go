package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/awaiter"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/memoryengine"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/oteladapters"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/promadapter"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/viewcache"
)

const (
	defaultRate            = 50
	defaultSubjects        = 100
	defaultScenarioWeights = "60,30,10" // append, query, await
)

type Config struct {
	Rate                 int
	Subjects             int
	ScenarioWeights      []int
	ObservabilityEnabled bool
	MetricsAddr          string
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize observability (if enabled)
	var storeOptions []memoryengine.Option
	var cacheOptions []viewcache.Option
	var waitOptions []awaiter.Option

	if cfg.ObservabilityEnabled {
		obsConfig := cfg.NewObservabilityConfig()
		if obsConfig.ContextualLogger != nil {
			storeOptions = append(storeOptions, memoryengine.WithContextualLogger(obsConfig.ContextualLogger))
		}
		if obsConfig.MetricsCollector != nil {
			storeOptions = append(storeOptions, memoryengine.WithMetrics(obsConfig.MetricsCollector))
			cacheOptions = append(cacheOptions, viewcache.WithMetrics(obsConfig.MetricsCollector))
			waitOptions = append(waitOptions, awaiter.WithMetrics(obsConfig.MetricsCollector))
		}
		if obsConfig.TracingCollector != nil {
			storeOptions = append(storeOptions, memoryengine.WithTracing(obsConfig.TracingCollector))
		}
		log.Printf("Observability enabled: metrics=%v, tracing=%v, logging=%v",
			obsConfig.MetricsCollector != nil,
			obsConfig.TracingCollector != nil,
			obsConfig.ContextualLogger != nil)
	}

	// Optionally expose Prometheus metrics alongside (or instead of) OTel
	if cfg.MetricsAddr != "" {
		promCollector := promadapter.NewCollector(prometheus.DefaultRegisterer)
		storeOptions = append(storeOptions, memoryengine.WithMetrics(promCollector))
		cacheOptions = append(cacheOptions, viewcache.WithMetrics(promCollector))
		waitOptions = append(waitOptions, awaiter.WithMetrics(promCollector))

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Printf("Metrics endpoint failed: %v", err)
			}
		}()
		log.Printf("Prometheus metrics exposed on %s/metrics", cfg.MetricsAddr)
	}

	// Initialize TrackingStore, ViewCache and waiter Registry
	store, err := memoryengine.NewTrackingStore(storeOptions...)
	if err != nil {
		log.Fatalf("Failed to create TrackingStore: %v", err)
	}

	views, err := viewcache.New(store, cacheOptions...)
	if err != nil {
		log.Fatalf("Failed to create ViewCache: %v", err)
	}

	waits, err := awaiter.NewRegistry(store, waitOptions...)
	if err != nil {
		log.Fatalf("Failed to create waiter Registry: %v", err)
	}

	loadGen := NewLoadGenerator(store, views, waits, cfg)

	// Start load generation in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := loadGen.Start(ctx); err != nil {
			errChan <- fmt.Errorf("load generator failed: %w", err)
		}
	}()

	log.Printf("Lifecycle Tracker Load Generator started")
	log.Printf("Configuration: rate=%d req/s, subjects=%d, scenario_weights=%v",
		cfg.Rate, cfg.Subjects, cfg.ScenarioWeights)
	log.Printf("Press Ctrl+C to stop...")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	case err := <-errChan:
		log.Printf("Error occurred: %v", err)
		cancel()
	}

	// Give some time for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := loadGen.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Load generator stopped")
}

func parseFlags() Config {
	var (
		rate            = flag.Int("rate", defaultRate, "Requests per second")
		subjects        = flag.Int("subjects", defaultSubjects, "Number of tracked subjects")
		scenarioWeights = flag.String("scenario-weights", defaultScenarioWeights, "Comma-separated weights for append,query,await scenarios")
		observability   = flag.Bool("observability-enabled", false, "Enable OpenTelemetry observability")
		metricsAddr     = flag.String("metrics-addr", "", "Address to expose Prometheus metrics on (empty disables)")
	)

	flag.Parse()

	weights, err := parseScenarioWeights(*scenarioWeights)
	if err != nil {
		log.Fatalf("Invalid scenario weights '%s': %v", *scenarioWeights, err)
	}

	if *subjects <= 0 {
		log.Fatalf("Invalid subject count %d: must be positive", *subjects)
	}

	return Config{
		Rate:                 *rate,
		Subjects:             *subjects,
		ScenarioWeights:      weights,
		ObservabilityEnabled: *observability,
		MetricsAddr:          *metricsAddr,
	}
}

func parseScenarioWeights(weightsStr string) ([]int, error) {
	parts := strings.Split(weightsStr, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected 3 weights, got %d", len(parts))
	}

	weights := make([]int, 3)
	total := 0
	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weight '%s': %w", part, err)
		}
		if weight < 0 || weight > 100 {
			return nil, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}
		weights[i] = weight
		total += weight
	}

	if total != 100 {
		return nil, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return weights, nil
}

// ObservabilityConfig holds the observability adapters for the tracker components.
type ObservabilityConfig struct {
	ContextualLogger tracker.ContextualLogger
	MetricsCollector tracker.MetricsCollector
	TracingCollector tracker.TracingCollector
}

func (c Config) NewObservabilityConfig() ObservabilityConfig {
	if !c.ObservabilityEnabled {
		return ObservabilityConfig{}
	}

	// The adapters use the global OpenTelemetry providers. Wire an exporter
	// via the usual provider setup before starting the generator.
	tracer := otel.Tracer("tracker-load-generator")
	meter := otel.Meter("tracker-load-generator")

	return ObservabilityConfig{
		ContextualLogger: oteladapters.NewSlogBridgeLogger("tracker-load-generator"),
		MetricsCollector: oteladapters.NewMetricsCollector(meter),
		TracingCollector: oteladapters.NewTracingCollector(tracer),
	}
}
