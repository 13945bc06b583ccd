// Package main implements a load generator for exercising the lifecycle
// tracker with configurable request rates and realistic scenario mixes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/awaiter"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/memoryengine"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/viewcache"
)

// component is the simulated subject type driven by the load generator.
// Handles are keyed by pointer identity, so each instance is its own history.
type component struct {
	name string
}

// LoadGenerator orchestrates realistic load against the tracking store with
// configurable request rates and scenario weights for appends, cached view
// queries and condition waits.
type LoadGenerator struct {
	store  *memoryengine.TrackingStore
	views  *viewcache.ViewCache
	waits  *awaiter.Registry
	config Config

	handles []*memoryengine.SubjectHandle

	// Rate limiting
	ticker   *time.Ticker
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Metrics and state
	requestCount int64
	errorCount   int64
	waitTimeouts int64
	startTime    time.Time
	mu           sync.RWMutex
}

// NewLoadGenerator creates a new LoadGenerator instance driving the provided
// store, view cache and waiter registry.
func NewLoadGenerator(
	store *memoryengine.TrackingStore,
	views *viewcache.ViewCache,
	waits *awaiter.Registry,
	config Config,
) *LoadGenerator {

	return &LoadGenerator{
		store:    store,
		views:    views,
		waits:    waits,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Start seeds the configured number of subjects and begins load generation
// with the configured request rate. It runs until the context is cancelled or
// Stop() is called.
func (lg *LoadGenerator) Start(ctx context.Context) error {
	lg.mu.Lock()
	lg.startTime = time.Now()
	lg.requestCount = 0
	lg.errorCount = 0
	lg.waitTimeouts = 0
	lg.mu.Unlock()

	if err := lg.seedSubjects(ctx); err != nil {
		return fmt.Errorf("seeding subjects failed: %w", err)
	}

	// Calculate an interval between requests based on the target rate
	interval := time.Second / time.Duration(lg.config.Rate)
	lg.ticker = time.NewTicker(interval)
	defer lg.ticker.Stop()

	log.Printf("Load generator starting with %d requests/second (interval: %v), initial goroutines: %d",
		lg.config.Rate, interval, runtime.NumGoroutine())

	// Start metrics reporting goroutine
	lg.wg.Add(1)
	go lg.metricsReporter(ctx)

	// Main load generation loop
	for {
		select {
		case <-ctx.Done():
			log.Printf("Load generator stopping due to context cancellation")
			return ctx.Err()

		case <-lg.stopChan:
			log.Printf("Load generator stopping due to stop signal")
			return nil

		case <-lg.ticker.C:
			lg.wg.Add(1)
			go lg.executeScenario(ctx)
		}
	}
}

// Stop gracefully shuts down the load generator.
func (lg *LoadGenerator) Stop(ctx context.Context) error {
	close(lg.stopChan)

	// Wait for all goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		lg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lg.logFinalStats()
		return nil
	case <-ctx.Done():
		lg.logFinalStats()
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// seedSubjects tracks the configured number of components and gives each an
// initial lifecycle event.
func (lg *LoadGenerator) seedSubjects(ctx context.Context) error {
	lg.handles = make([]*memoryengine.SubjectHandle, 0, lg.config.Subjects)

	for i := 0; i < lg.config.Subjects; i++ {
		handle, err := lg.store.Track(&component{name: fmt.Sprintf("component-%d", i)})
		if err != nil {
			return err
		}

		if err = lg.store.Append(ctx, handle, tracker.CategoryInitial,
			tracker.T("render_ms", randomDuration()),
		); err != nil {
			return err
		}

		lg.handles = append(lg.handles, handle)
	}

	log.Printf("Seeded %d subjects with initial events", len(lg.handles))

	return nil
}

// executeScenario runs a single load generation scenario based on configured weights.
func (lg *LoadGenerator) executeScenario(ctx context.Context) {
	defer lg.wg.Done()

	scenarioType := lg.selectScenario()

	var err error
	switch scenarioType {
	case "append":
		err = lg.runAppendScenario(ctx)
	case "query":
		err = lg.runQueryScenario()
	case "await":
		err = lg.runAwaitScenario(ctx)
	default:
		err = fmt.Errorf("unknown scenario type: %s", scenarioType)
	}

	// Update internal counters
	lg.mu.Lock()
	lg.requestCount++
	if err != nil {
		if errors.Is(err, tracker.ErrWaitTimeout) {
			lg.waitTimeouts++
		} else {
			lg.errorCount++
			log.Printf("Scenario error (%s): %v", scenarioType, err)
		}
	}
	lg.mu.Unlock()
}

// selectScenario chooses a scenario type based on configured weights.
func (lg *LoadGenerator) selectScenario() string {
	// Generate random number 0-99
	r := rand.Intn(100) //nolint:gosec // Test code - weak random is acceptable

	// Apply weights: [append, query, await]
	// Example: [60, 30, 10] -> append: 0-59, query: 60-89, await: 90-99
	if r < lg.config.ScenarioWeights[0] {
		return "append"
	}
	if r < lg.config.ScenarioWeights[0]+lg.config.ScenarioWeights[1] {
		return "query"
	}

	return "await"
}

// runAppendScenario appends an update event with timing measurements to a
// random subject.
func (lg *LoadGenerator) runAppendScenario(ctx context.Context) error {
	handle := lg.randomHandle()

	category := tracker.CategoryUpdate
	if rand.Intn(4) == 0 { //nolint:gosec // Test code - weak random is acceptable
		category = tracker.CategoryNestedUpdate
	}

	return lg.store.Append(ctx, handle, category,
		tracker.T("render_ms", randomDuration()),
		tracker.T("layout_ms", randomDuration()),
	)
}

// runQueryScenario reads a random derived view for a random subject through
// the cache.
func (lg *LoadGenerator) runQueryScenario() error {
	handle := lg.randomHandle()

	switch rand.Intn(4) { //nolint:gosec // Test code - weak random is acceptable
	case 0:
		_, err := lg.views.Counts(handle)
		return err
	case 1:
		_, err := lg.views.LastCategory(handle)
		return err
	case 2:
		_, err := lg.views.HasCategory(handle, tracker.CategoryNestedUpdate)
		return err
	default:
		_, err := lg.views.TimingStats(handle, "render_ms")
		return err
	}
}

// runAwaitScenario registers a waiter for a few more events on a random
// subject and blocks until it resolves or times out. Timeouts are an expected
// outcome at low append rates and are counted separately.
func (lg *LoadGenerator) runAwaitScenario(ctx context.Context) error {
	handle := lg.randomHandle()

	current, err := lg.store.Count(handle)
	if err != nil {
		return err
	}

	waiter, err := lg.waits.WaitFor(handle, tracker.MinCount(current+1), 2*time.Second)
	if err != nil {
		return err
	}

	return waiter.AwaitContext(ctx)
}

func (lg *LoadGenerator) randomHandle() *memoryengine.SubjectHandle {
	return lg.handles[rand.Intn(len(lg.handles))] //nolint:gosec // Test code - weak random is acceptable
}

// randomDuration produces a plausible timing sample in milliseconds with the
// occasional outlier.
func randomDuration() float64 {
	base := 1 + rand.Float64()*15 //nolint:gosec // Test code - weak random is acceptable
	if rand.Intn(20) == 0 {       //nolint:gosec // Test code - weak random is acceptable
		return base * 10
	}
	return base
}

// metricsReporter logs metrics periodically.
func (lg *LoadGenerator) metricsReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.logCurrentStats()
		}
	}
}

// logCurrentStats logs current performance statistics and the cache's
// hit/miss accounting.
func (lg *LoadGenerator) logCurrentStats() {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	errors := lg.errorCount
	timeouts := lg.waitTimeouts
	lg.mu.RUnlock()

	goroutineCount := runtime.NumGoroutine()

	if duration > 0 && requests > 0 {
		rps := float64(requests) / duration.Seconds()
		errorRate := float64(errors) / float64(requests) * 100
		log.Printf("Stats: %d requests in %v (%.1f req/s), %d errors (%.1f%%), %d wait timeouts, %d goroutines",
			requests, duration.Truncate(time.Second), rps, errors, errorRate, timeouts, goroutineCount)
	}

	if report, err := lg.views.Metrics().JSON(); err == nil {
		log.Printf("View cache: %s", report)
	}
}

// logFinalStats logs final performance statistics.
func (lg *LoadGenerator) logFinalStats() {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	errors := lg.errorCount
	timeouts := lg.waitTimeouts
	lg.mu.RUnlock()

	if duration > 0 && requests > 0 {
		rps := float64(requests) / duration.Seconds()
		errorRate := float64(errors) / float64(requests) * 100
		log.Printf("Final Stats: %d requests in %v (%.1f req/s), %d errors (%.1f%%), %d wait timeouts",
			requests, duration.Truncate(time.Second), rps, errors, errorRate, timeouts)
	}

	if report, err := lg.views.Metrics().JSON(); err == nil {
		log.Printf("Final view cache: %s", report)
	}
}
