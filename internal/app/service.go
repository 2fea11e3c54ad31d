// Package service provides the boundary facade that wires the matchmaking
// core together: matching pipeline, session registry, and the event
// persistence path.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/musterhq/muster/internal/adapters/mq/queue"
	workerpool "github.com/musterhq/muster/internal/adapters/mq/worker"
	repository "github.com/musterhq/muster/internal/adapters/repository"
	heartbeat "github.com/musterhq/muster/internal/domain/heartbeat"
	matching "github.com/musterhq/muster/internal/domain/matching"
	model "github.com/musterhq/muster/internal/domain/model"
	sanitize "github.com/musterhq/muster/internal/domain/sanitize"
	timeline "github.com/musterhq/muster/internal/domain/timeline"
	session "github.com/musterhq/muster/internal/session"
	"github.com/musterhq/muster/pkg/logger"
	"github.com/musterhq/muster/pkg/metrics"
)

// MatchRequest is one matching run over a role configuration and a queue.
type MatchRequest struct {
	// Mode selects the strategy; empty defaults to exact_fit.
	Mode  string
	Roles []model.RoleSlot
	Queue []model.QueueEntry
}

// MatchReport is the full outcome of a matching run: the (sanitized) result,
// the queue entries excluded as stale, and the members the sanitizer dropped.
type MatchReport struct {
	Result  matching.Result
	Stale   []heartbeat.StaleEntry
	Removed []model.RemovedMember
}

// Service implements the boundary facade for the matchmaking core.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry   *session.Registry
	engine     *matching.Engine
	store      repository.Store
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	warningLimit     int
	eventLogCap      int
	staleThresholdMS int64
	safeFallback     bool
	defaultMode      session.Mode
	strategies       map[string]matching.Strategy
	seatProvider     session.SeatProvider
	now              func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of persistence workers.
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

// WithWarningLimit sets the inactivity strikes tolerated before escalation.
func WithWarningLimit(limit int) Option {
	return func(s *Service) {
		if limit >= 0 {
			s.warningLimit = limit
		}
	}
}

// WithEventLogCap bounds each session's in-memory event log.
func WithEventLogCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.eventLogCap = n
		}
	}
}

// WithStaleThreshold excludes queue entries older than the threshold from
// matching. Zero disables staleness checks.
func WithStaleThreshold(ms int64) Option {
	return func(s *Service) {
		if ms >= 0 {
			s.staleThresholdMS = ms
		}
	}
}

// WithSafeFallback retries not-ready matching runs with exact-fit.
func WithSafeFallback(enabled bool) Option {
	return func(s *Service) {
		s.safeFallback = enabled
	}
}

// WithDefaultMode sets the session mode used when callers do not pick one.
func WithDefaultMode(mode session.Mode) Option {
	return func(s *Service) {
		if mode != "" {
			s.defaultMode = mode
		}
	}
}

// WithStrategy registers an extra matching strategy under a mode name.
func WithStrategy(mode string, strategy matching.Strategy) Option {
	return func(s *Service) {
		if mode != "" && strategy != nil {
			s.strategies[mode] = strategy
		}
	}
}

// WithSeatProvider sets the drop-in seat provider shared by all sessions.
func WithSeatProvider(p session.SeatProvider) Option {
	return func(s *Service) {
		s.seatProvider = p
	}
}

// WithStore injects a pre-built event store instead of the in-memory default.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock overrides the clock used by matching, sessions, and staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The pure parts (matching, sessions) work
// immediately; Start wires the persistence path.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    4096,
		warningLimit: session.DefaultWarningLimit,
		eventLogCap:  session.DefaultEventLogCap,
		safeFallback: true,
		defaultMode:  session.ModeRealtime,
		strategies:   make(map[string]matching.Strategy),
		now:          time.Now,
		logger:       logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	engineOpts := []matching.Option{
		matching.WithClock(s.now),
		matching.WithSafeFallback(s.safeFallback),
	}
	for mode, strategy := range s.strategies {
		engineOpts = append(engineOpts, matching.WithStrategy(mode, strategy))
	}
	s.engine = matching.New(engineOpts...)

	s.registry = session.NewRegistry(
		session.WithSeatProvider(s.seatProvider),
		session.WithTrackerOptions(
			session.WithWarningLimit(s.warningLimit),
			session.WithEventLogCap(s.eventLogCap),
			session.WithTrackerClock(s.now),
		),
		session.WithDropInOptions(session.WithDropInClock(s.now)),
	)

	return s
}

// Start wires the event persistence path: store, queue, and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting matchmaking core...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matchmaking core started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("warningLimit", s.warningLimit),
	)

	return nil
}

// Stop gracefully shuts down the persistence path. Sessions stay usable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping matchmaking core...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "matchmaking core stopped")
}

// RunMatching executes the full matching pipeline: staleness partition,
// strategy run, assignment sanitization. Failures come back as values inside
// the report, never as errors.
func (s *Service) RunMatching(ctx context.Context, req MatchRequest) MatchReport {
	start := time.Now()

	mode := req.Mode
	if mode == "" {
		mode = matching.ModeExactFit
	}

	hb := heartbeat.Partition(req.Queue, heartbeat.Params{
		NowMS:            s.now().UnixMilli(),
		StaleThresholdMS: s.staleThresholdMS,
	})

	res := s.engine.Run(ctx, mode, req.Roles, hb.Fresh)
	res.Assignments = sanitize.Sanitize(res.Assignments)

	var removed []model.RemovedMember
	for _, a := range res.Assignments {
		for _, rm := range a.RemovedMembers {
			removed = append(removed, rm)
			metrics.RecordMemberRemoved(string(rm.Reason))
		}
	}

	metrics.RecordMatchRun(mode)
	metrics.RecordStaleEntries(len(hb.Stale))
	metrics.RecordMatchingLatency(float64(time.Since(start).Milliseconds()))
	if res.FellBack {
		metrics.RecordMatchFallback()
	}
	if !res.Ready {
		metrics.RecordMatchNotReady()
	}

	s.logger.Debug(ctx, "matching run finished",
		logger.String("mode", mode),
		logger.Bool("ready", res.Ready),
		logger.Int("staleEntries", len(hb.Stale)),
		logger.Int("removedMembers", len(removed)),
	)

	return MatchReport{Result: res, Stale: hb.Stale, Removed: removed}
}

// OpenSession returns the id of the session, creating it on first use. An
// empty mode uses the configured default.
func (s *Service) OpenSession(_ context.Context, id string, mode session.Mode) string {
	if mode == "" {
		mode = s.defaultMode
	}
	sess := s.registry.Open(id, mode)
	metrics.UpdateLiveSessions(s.registry.Len())
	return sess.ID()
}

// CloseSession removes a session from the registry.
func (s *Service) CloseSession(_ context.Context, id string) {
	s.registry.Close(id)
	metrics.UpdateLiveSessions(s.registry.Len())
}

// SyncParticipants reconciles a session's roster with an external list.
func (s *Service) SyncParticipants(_ context.Context, sessionID string, participants []model.Participant) (session.Snapshot, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.SyncParticipants(participants), nil
}

// SetManagedOwners restricts strike accrual to the given owners.
func (s *Service) SetManagedOwners(_ context.Context, sessionID string, ownerIDs []string) error {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return err
	}
	sess.SetManagedOwners(ownerIDs)
	return nil
}

// BeginTurn opens a turn in a session with the given eligible owners.
func (s *Service) BeginTurn(_ context.Context, sessionID string, turn int, eligibleOwnerIDs []string) (session.Snapshot, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.BeginTurn(turn, eligibleOwnerIDs), nil
}

// RecordParticipation marks an owner as having acted this turn.
func (s *Service) RecordParticipation(_ context.Context, sessionID, ownerID string, turn int, participationType string) (session.Snapshot, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.RecordParticipation(ownerID, turn, participationType), nil
}

// CompleteTurn closes a turn, issuing warnings and escalations for owners
// still pending. Derived events flow to the persistence queue.
func (s *Service) CompleteTurn(ctx context.Context, sessionID string, turn int, reason string, eligibleOwnerIDs []string) (session.TurnReport, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return session.TurnReport{}, err
	}
	report := sess.CompleteTurn(turn, reason, eligibleOwnerIDs)

	for range report.Warnings {
		metrics.RecordWarningIssued()
	}
	for range report.Escalated {
		metrics.RecordProxyEscalation()
	}
	s.persistEvents(ctx, report.Events)

	return report, nil
}

// SessionSnapshot returns the current state of a session.
func (s *Service) SessionSnapshot(_ context.Context, sessionID string) (session.Snapshot, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// SeatDropIns asks the seat provider to fill open seats and records the
// resulting drop-in events in the session log and the persistence queue.
func (s *Service) SeatDropIns(ctx context.Context, sessionID string, participants []model.Participant) (session.SeatOutcome, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return session.SeatOutcome{}, err
	}
	outcome, err := sess.SeatDropIns(ctx, participants)
	if err != nil {
		return session.SeatOutcome{}, err
	}

	for range outcome.Events {
		metrics.RecordDropInSeated()
	}
	s.persistEvents(ctx, outcome.Events)

	return outcome, nil
}

// IngestEvents normalizes raw event maps, records them in the session log,
// and queues them for persistence. Returns how many events were accepted.
func (s *Service) IngestEvents(ctx context.Context, sessionID string, raw []map[string]any) (int, error) {
	var sess *session.Session
	if sessionID != "" {
		var err error
		sess, err = s.registry.Get(sessionID)
		if err != nil {
			return 0, err
		}
	}

	var events []model.TimelineEvent
	for _, r := range raw {
		e, ok := timeline.Normalize(r, timeline.NormalizeOptions{})
		if !ok {
			continue
		}
		events = append(events, e)
	}
	events = timeline.NormalizeEvents(events)

	if sess != nil {
		sess.RecordEvents(events)
	}
	s.persistEvents(ctx, events)

	return len(events), nil
}

// History returns the full merged history from the event store.
func (s *Service) History(ctx context.Context, order timeline.Order) ([]model.TimelineEvent, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, order)
}

// OwnerHistory returns the merged history for one owner.
func (s *Service) OwnerHistory(ctx context.Context, ownerID string, order timeline.Order) ([]model.TimelineEvent, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	return store.ByOwner(ctx, ownerID, order)
}

// ReplayRows decodes serialized timeline rows, merges them into the store,
// and returns the merged batch. Broken rows are dropped.
func (s *Service) ReplayRows(ctx context.Context, rows []timeline.Row, order timeline.Order) ([]model.TimelineEvent, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	events := timeline.RowsToEvents(rows, order)
	if _, err := store.Append(ctx, events...); err != nil {
		return nil, err
	}
	return events, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"warningLimit": s.warningLimit,
		"sessions":     s.registry.Len(),
	}

	if s.started {
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["storedEvents"] = s.store.Count(ctx)
		metrics.UpdateLiveSessions(s.registry.Len())
	}

	return stats
}

// persistEvents hands events to the queue when the persistence path is up.
// Overflow drops are counted by the queue and logged here.
func (s *Service) persistEvents(ctx context.Context, events []model.TimelineEvent) {
	s.mu.RLock()
	started := s.started
	queue := s.eventQueue
	s.mu.RUnlock()

	if !started || queue == nil {
		return
	}
	for _, e := range events {
		if !queue.Enqueue(ctx, e) {
			s.logger.Warn(ctx, "event dropped by full queue",
				logger.String("event_key", e.Key()),
			)
		}
	}
}

// activeStore returns the store when the persistence path is up.
func (s *Service) activeStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}
