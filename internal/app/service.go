// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/uxlens/uxlens/internal/adapters/mq/queue"
	workerpool "github.com/uxlens/uxlens/internal/adapters/mq/worker"
	repository "github.com/uxlens/uxlens/internal/adapters/repository"
	"github.com/uxlens/uxlens/internal/domain/classify"
	"github.com/uxlens/uxlens/internal/domain/dedupe"
	"github.com/uxlens/uxlens/internal/domain/flow"
	"github.com/uxlens/uxlens/internal/domain/heatmap"
	"github.com/uxlens/uxlens/internal/domain/model"
	"github.com/uxlens/uxlens/internal/domain/path"
	"github.com/uxlens/uxlens/internal/domain/spatial"
	"github.com/uxlens/uxlens/internal/domain/stats"
	"github.com/uxlens/uxlens/internal/domain/types"
	"github.com/uxlens/uxlens/pkg/logger"
	"github.com/uxlens/uxlens/pkg/metrics"
)

// Default report configuration constants.
const (
	defaultQueueSize       = 100000
	defaultDedupeSize      = 50000
	defaultHeatmapMaxWidth = 1280
	defaultScaleMin        = 1
	defaultScaleMax        = 5
)

// Service implements the API dependencies for the result-aggregation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool
	classifier *classify.Classifier
	flowGraph  *flow.Builder
	rasterizer *heatmap.Rasterizer

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	dbPath            string
	inactivityTimeout time.Duration
	heatmapRadius     float64
	heatmapBlur       float64
	heatmapMaxWidth   int
	scaleMin          int
	scaleMax          int
	maxReportSessions int
	now               func() time.Time

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDBPath points the store at a SQLite database file. An empty path keeps
// the in-memory store.
func WithDBPath(path string) Option {
	return func(s *Service) {
		s.dbPath = path
	}
}

// WithInactivityTimeout sets the silence window after which a session with no
// terminal event counts as closed.
func WithInactivityTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.inactivityTimeout = timeout
		}
	}
}

// WithHeatmapSettings tunes the rasterizer's falloff radius and blur factor.
func WithHeatmapSettings(radius, blur float64) Option {
	return func(s *Service) {
		if radius > 0 {
			s.heatmapRadius = radius
		}
		if blur > 0 {
			s.heatmapBlur = blur
		}
	}
}

// WithHeatmapMaxWidth caps the rendered raster width in pixels.
func WithHeatmapMaxWidth(width int) Option {
	return func(s *Service) {
		if width > 0 {
			s.heatmapMaxWidth = width
		}
	}
}

// WithScaleRange sets the valid opinion-scale answer range.
func WithScaleRange(minValue, maxValue int) Option {
	return func(s *Service) {
		if maxValue > minValue {
			s.scaleMin = minValue
			s.scaleMax = maxValue
		}
	}
}

// WithMaxReportSessions caps the number of sessions a single report considers.
// Zero means unlimited.
func WithMaxReportSessions(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxReportSessions = limit
		}
	}
}

// WithClock overrides the wall clock. Reports classify in-progress sessions
// against this clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         defaultQueueSize,
		dedupeSize:        defaultDedupeSize,
		inactivityTimeout: classify.DefaultInactivityTimeout,
		heatmapRadius:     heatmap.DefaultRadius,
		heatmapBlur:       heatmap.DefaultBlur,
		heatmapMaxWidth:   defaultHeatmapMaxWidth,
		scaleMin:          defaultScaleMin,
		scaleMax:          defaultScaleMax,
		now:               time.Now,
		stopCh:            make(chan struct{}),
		logger:            nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting report service...")

	if s.dbPath != "" {
		store, err := repository.NewSQLiteStore(s.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	} else {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.classifier = classify.New(
		classify.WithInactivityTimeout(s.inactivityTimeout),
	)
	s.flowGraph = flow.NewBuilder()
	s.rasterizer = heatmap.New(
		heatmap.WithRadius(s.heatmapRadius),
		heatmap.WithBlur(s.heatmapBlur),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "report service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping report service...")

	// Closing the queue lets workers drain buffered events before the
	// store goes away.
	if q, ok := s.eventQueue.(*eventqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "report service stopped")
}

// SeenAndRecord atomically checks if an event id was seen and records it if
// not. Returns true if the event was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes an event id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a telemetry event for asynchronous persistence.
func (s *Service) Enqueue(ctx context.Context, e model.Event) bool {
	return s.eventQueue.Enqueue(ctx, e)
}

// RecordSessions upserts session rows.
func (s *Service) RecordSessions(ctx context.Context, sessions []model.Session) error {
	return s.store.InsertSessions(ctx, sessions)
}

// RecordAnswers stores opinion-scale answers.
func (s *Service) RecordAnswers(ctx context.Context, answers []model.Answer) error {
	return s.store.InsertAnswers(ctx, answers)
}

// RecordGaze stores gaze samples.
func (s *Service) RecordGaze(ctx context.Context, samples []model.GazeSample) error {
	return s.store.InsertGaze(ctx, samples)
}

// blockRows fetches one block's session and event rows, optionally narrowed
// to a set of runs.
func (s *Service) blockRows(ctx context.Context, runIDs []string, blockID string) ([]model.Session, []model.Event, error) {
	sessions, err := s.store.SessionsByBlock(ctx, blockID)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.store.EventsByBlock(ctx, blockID)
	if err != nil {
		return nil, nil, err
	}

	if len(runIDs) > 0 {
		keep := make(map[string]struct{}, len(runIDs))
		for _, id := range runIDs {
			keep[id] = struct{}{}
		}
		filtered := sessions[:0]
		for _, sess := range sessions {
			if _, ok := keep[sess.RunID]; ok {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
		filteredEvents := events[:0]
		for _, e := range events {
			if _, ok := keep[e.RunID]; ok {
				filteredEvents = append(filteredEvents, e)
			}
		}
		events = filteredEvents
	}

	if len(sessions) == 0 && len(events) == 0 {
		return nil, nil, fmt.Errorf("block %s: %w", blockID, ErrBlockNotFound)
	}
	return sessions, events, nil
}

// classifyBlock groups a block's events per session and classifies each
// session's outcome. Session order is session rows first, then sessions seen
// only through events, so reports stay deterministic for identical stores.
func (s *Service) classifyBlock(sessions []model.Session, events []model.Event) (map[string]classify.Status, []path.SessionEvents, []float64) {
	rows := make(map[string]*model.Session, len(sessions))
	order := make([]string, 0, len(sessions))
	for i := range sessions {
		rows[sessions[i].ID] = &sessions[i]
		order = append(order, sessions[i].ID)
	}

	grouped := make(map[string][]model.Event)
	for _, e := range events {
		if _, known := rows[e.SessionID]; !known {
			if _, seen := grouped[e.SessionID]; !seen {
				order = append(order, e.SessionID)
			}
		}
		grouped[e.SessionID] = append(grouped[e.SessionID], e)
	}

	if s.maxReportSessions > 0 && len(order) > s.maxReportSessions {
		order = order[:s.maxReportSessions]
	}

	now := s.now()
	outcomes := make(map[string]classify.Status, len(order))
	sessionEvents := make([]path.SessionEvents, 0, len(order))
	var elapsed []float64
	for _, id := range order {
		sess := rows[id]
		if sess == nil {
			sess = &model.Session{ID: id, BlockID: events[0].BlockID}
		}
		outcome := s.classifier.Classify(sess, grouped[id], now)
		metrics.RecordSessionClassified(string(outcome.Status))
		outcomes[id] = outcome.Status
		sessionEvents = append(sessionEvents, path.SessionEvents{SessionID: id, Events: grouped[id]})
		if outcome.ElapsedKnown && outcome.Status.Terminal() {
			elapsed = append(elapsed, outcome.ElapsedSeconds)
		}
	}
	return outcomes, sessionEvents, elapsed
}

// BlockSummary builds the outcome/dwell summary for one block.
func (s *Service) BlockSummary(ctx context.Context, runIDs []string, blockID string) (types.Summary, error) {
	start := time.Now()
	defer func() {
		metrics.RecordReportDuration("summary", float64(time.Since(start).Milliseconds()))
	}()

	sessions, events, err := s.blockRows(ctx, runIDs, blockID)
	if err != nil {
		return types.Summary{}, err
	}
	outcomes, _, elapsed := s.classifyBlock(sessions, events)

	counts := stats.Count(outcomes)
	total := len(outcomes)
	metrics.RecordReportBuilt("summary")
	return types.Summary{
		BlockID:        blockID,
		Sessions:       total,
		Outcomes:       counts,
		CompletionRate: stats.Rate(counts.Completed, total),
		AbortRate:      stats.Rate(counts.Aborted, total),
		CloseRate:      stats.Rate(counts.Closed, total),
		MeanSeconds:    stats.Mean(elapsed),
		MedianSeconds:  stats.Median(elapsed),
	}, nil
}

// BlockFlow builds the per-session lane flow graph for one block.
func (s *Service) BlockFlow(ctx context.Context, runIDs []string, blockID string) (*flow.Graph, error) {
	start := time.Now()
	defer func() {
		metrics.RecordReportDuration("flow", float64(time.Since(start).Milliseconds()))
	}()

	sessions, events, err := s.blockRows(ctx, runIDs, blockID)
	if err != nil {
		return nil, err
	}
	outcomes, sessionEvents, _ := s.classifyBlock(sessions, events)

	res := path.Aggregate(sessionEvents, outcomes)
	graph := s.flowGraph.Build(res, outcomes)
	metrics.RecordReportBuilt("flow")
	return graph, nil
}

// ScreenHeatmap renders a click or gaze heatmap for one screen of a block.
// An empty point cloud yields a fully transparent raster, not an error.
func (s *Service) ScreenHeatmap(ctx context.Context, runIDs []string, blockID, screenID string, p types.HeatmapParams) (*heatmap.Raster, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRasterDuration(float64(time.Since(start).Milliseconds()))
	}()

	var points []model.HeatPoint
	switch p.Source {
	case "gaze":
		samples, err := s.store.GazeByScreen(ctx, blockID, screenID)
		if err != nil {
			return nil, err
		}
		samples = filterGazeRuns(samples, runIDs)
		points = spatial.CollectGaze(samples, screenID, p.FirstPerSession)
		// Gaze points are normalized; lift them into logical screen space.
		for i := range points {
			points[i].X *= p.ScreenW
			points[i].Y *= p.ScreenH
		}
	default:
		events, err := s.store.EventsByScreen(ctx, blockID, screenID)
		if err != nil {
			return nil, err
		}
		events = filterEventRuns(events, runIDs)
		points = spatial.CollectClicks(events, screenID, p.FirstPerSession, p.ScreenW, p.ScreenH)
	}

	merged := spatial.Collapse(points)
	rasterW, rasterH := heatmap.FitDimensions(p.ScreenW, p.ScreenH, s.heatmapMaxWidth)
	scaled := heatmap.ScalePoints(merged, p.ScreenW, p.ScreenH, rasterW, rasterH)
	raster := s.rasterizer.Rasterize(scaled, rasterW, rasterH, heatmap.MaxWeight(scaled))
	metrics.RecordReportBuilt("heatmap")
	return raster, nil
}

// ScreenClicks builds the discrete click-order overlay for one screen of a
// block: every click as a numbered marker, fallback markers included.
func (s *Service) ScreenClicks(ctx context.Context, runIDs []string, blockID, screenID string, p types.HeatmapParams) ([]types.ClickMarker, error) {
	start := time.Now()
	defer func() {
		metrics.RecordReportDuration("clicks", float64(time.Since(start).Milliseconds()))
	}()

	events, err := s.store.EventsByScreen(ctx, blockID, screenID)
	if err != nil {
		return nil, err
	}
	events = filterEventRuns(events, runIDs)
	markers := spatial.CollectClickMarkers(events, screenID, p.FirstPerSession, p.ScreenW, p.ScreenH)
	metrics.RecordReportBuilt("clicks")
	return markers, nil
}

// ScaleReport aggregates one block's opinion-scale answers.
func (s *Service) ScaleReport(ctx context.Context, runIDs []string, blockID string) (types.ScaleReport, error) {
	start := time.Now()
	defer func() {
		metrics.RecordReportDuration("scale", float64(time.Since(start).Milliseconds()))
	}()

	answers, err := s.store.AnswersByBlock(ctx, blockID)
	if err != nil {
		return types.ScaleReport{}, err
	}
	if len(runIDs) > 0 {
		keep := make(map[string]struct{}, len(runIDs))
		for _, id := range runIDs {
			keep[id] = struct{}{}
		}
		filtered := answers[:0]
		for _, a := range answers {
			if _, ok := keep[a.RunID]; ok {
				filtered = append(filtered, a)
			}
		}
		answers = filtered
	}

	values := make([]int, len(answers))
	for i, a := range answers {
		values[i] = a.Value
	}
	histogram, mean, excluded := stats.ScaleAggregate(values, s.scaleMin, s.scaleMax)
	metrics.RecordReportBuilt("scale")
	return types.ScaleReport{
		BlockID:   blockID,
		Histogram: histogram,
		Mean:      mean,
		Answers:   len(values) - excluded,
		Excluded:  excluded,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		if stored, err := s.store.CountEvents(ctx); err == nil {
			stats["storedEvents"] = stored
			metrics.UpdateStoredEvents(stored)
		}
	}

	return stats
}

func filterEventRuns(events []model.Event, runIDs []string) []model.Event {
	if len(runIDs) == 0 {
		return events
	}
	keep := make(map[string]struct{}, len(runIDs))
	for _, id := range runIDs {
		keep[id] = struct{}{}
	}
	filtered := events[:0]
	for _, e := range events {
		if _, ok := keep[e.RunID]; ok {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func filterGazeRuns(samples []model.GazeSample, runIDs []string) []model.GazeSample {
	if len(runIDs) == 0 {
		return samples
	}
	keep := make(map[string]struct{}, len(runIDs))
	for _, id := range runIDs {
		keep[id] = struct{}{}
	}
	filtered := samples[:0]
	for _, g := range samples {
		if _, ok := keep[g.RunID]; ok {
			filtered = append(filtered, g)
		}
	}
	return filtered
}
