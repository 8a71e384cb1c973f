package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/services"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/telemetry"
	"github.com/robfig/cron/v3"
)

// Checker runs one reconciliation pass for an order.
type Checker interface {
	Check(ctx context.Context, orderID int64, driver domain.Driver) (*services.Decision, error)
}

type SchedulerConfig struct {
	InitialDelay    time.Duration
	Interval        time.Duration
	ResyncInterval  time.Duration
	ResyncBatchSize int
	// CheckTimeout bounds a single scheduled check.
	CheckTimeout time.Duration
}

// Scheduler is the scheduled polling driver. Each order with an active
// session owns one cron entry that fires after InitialDelay and then every
// Interval, until a terminal transition cancels it.
type Scheduler struct {
	cron     *cron.Cron
	checker  Checker
	sessions application.SessionRepository
	cfg      SchedulerConfig
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[int64]cron.EntryID
	baseCtx context.Context
}

var _ application.PollScheduler = (*Scheduler)(nil)

func NewScheduler(
	checker Checker,
	sessions application.SessionRepository,
	cfg SchedulerConfig,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Scheduler {
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = time.Minute
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		checker:  checker,
		sessions: sessions,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		entries:  make(map[int64]cron.EntryID),
		baseCtx:  context.Background(),
	}
}

// Schedule (re)starts polling for an order. An existing entry is replaced so
// the initial delay counts from now.
func (s *Scheduler) Schedule(orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[orderID]; ok {
		s.cron.Remove(id)
	}

	sched := &pollSchedule{
		first: time.Now().Add(s.cfg.InitialDelay),
		every: s.cfg.Interval,
	}
	s.entries[orderID] = s.cron.Schedule(sched, cron.FuncJob(func() { s.run(orderID) }))
	s.updateGauge()

	s.logger.Debug("status polling scheduled",
		"order_id", orderID,
		"first_check", sched.first,
	)
	return nil
}

func (s *Scheduler) Cancel(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[orderID]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, orderID)
	s.updateGauge()

	s.logger.Debug("status polling cancelled", "order_id", orderID)
}

// Scheduled reports whether the order currently has a cron entry.
func (s *Scheduler) Scheduled(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[orderID]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start resumes polling for every active session, runs the cron loop and
// periodically picks up sessions created by other instances. It blocks until
// ctx is done and running checks have returned.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.logger.Info("status poll scheduler started",
		"initial_delay", s.cfg.InitialDelay,
		"interval", s.cfg.Interval,
		"resync_interval", s.cfg.ResyncInterval,
	)

	s.Resync(ctx)
	s.cron.Start()

	ticker := time.NewTicker(s.cfg.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("status poll scheduler stopping")
			<-s.cron.Stop().Done()
			return
		case <-ticker.C:
			s.Resync(ctx)
		}
	}
}

// Resync walks every active session in batches and schedules the ones that
// have no entry yet.
func (s *Scheduler) Resync(ctx context.Context) {
	batch := s.cfg.ResyncBatchSize
	if batch <= 0 {
		batch = 500
	}

	added := 0
	var after int64
	for {
		sessions, err := s.sessions.ListActiveSessions(ctx, after, batch)
		if err != nil {
			s.logger.Error("failed to list active sessions", "after_order_id", after, "error", err)
			break
		}

		for _, session := range sessions {
			after = session.OrderID
			if !session.HasTokens() || s.Scheduled(session.OrderID) {
				continue
			}
			if err := s.Schedule(session.OrderID); err != nil {
				s.logger.Error("failed to schedule session", "order_id", session.OrderID, "error", err)
				continue
			}
			added++
		}

		if len(sessions) < batch || ctx.Err() != nil {
			break
		}
	}

	if added > 0 {
		s.logger.Info("resumed status polling", "count", added)
	}
}

func (s *Scheduler) run(orderID int64) {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, s.cfg.CheckTimeout)
	defer cancel()

	decision, err := s.checker.Check(ctx, orderID, domain.DriverScheduled)
	if err != nil {
		if svcErr, ok := application.IsServiceError(err); ok &&
			(svcErr.Code == application.ErrCodeOrderNotFound || svcErr.Code == application.ErrCodeMissingTokens) {
			s.logger.Warn("dropping scheduled status check", "order_id", orderID, "reason", svcErr.Code)
			s.Cancel(orderID)
			return
		}
		s.logger.Error("scheduled status check failed", "order_id", orderID, "error", err)
		return
	}

	if !decision.Reschedule() {
		s.Cancel(orderID)
	}
}

func (s *Scheduler) updateGauge() {
	if s.metrics != nil {
		s.metrics.ActivePolls.Set(float64(len(s.entries)))
	}
}

// pollSchedule fires once at first and then every interval.
type pollSchedule struct {
	first time.Time
	every time.Duration
}

func (p *pollSchedule) Next(t time.Time) time.Time {
	if t.Before(p.first) {
		return p.first
	}
	return t.Add(p.every)
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
