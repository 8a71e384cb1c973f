package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/services"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/services/testhelpers"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChecker answers with the next outcome for an order; once the
// script is exhausted it keeps returning the last one.
type scriptedChecker struct {
	mu      sync.Mutex
	script  map[int64][]services.Outcome
	errs    map[int64]error
	calls   map[int64]int
	drivers []domain.Driver
}

func newScriptedChecker() *scriptedChecker {
	return &scriptedChecker{
		script: make(map[int64][]services.Outcome),
		errs:   make(map[int64]error),
		calls:  make(map[int64]int),
	}
}

func (c *scriptedChecker) Check(ctx context.Context, orderID int64, driver domain.Driver) (*services.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[orderID]++
	c.drivers = append(c.drivers, driver)
	if err := c.errs[orderID]; err != nil {
		return nil, err
	}

	outcomes := c.script[orderID]
	outcome := services.OutcomePending
	if n := c.calls[orderID]; len(outcomes) > 0 {
		if n > len(outcomes) {
			n = len(outcomes)
		}
		outcome = outcomes[n-1]
	}
	return &services.Decision{OrderID: orderID, Driver: driver, Outcome: outcome}, nil
}

func (c *scriptedChecker) Calls(orderID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[orderID]
}

func newTestScheduler(checker Checker, sessions application.SessionRepository, metrics *telemetry.Metrics) *Scheduler {
	return NewScheduler(checker, sessions, SchedulerConfig{
		InitialDelay:    10 * time.Millisecond,
		Interval:        10 * time.Millisecond,
		ResyncInterval:  20 * time.Millisecond,
		ResyncBatchSize: 100,
		CheckTimeout:    time.Second,
	}, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduler_ReschedulesUntilTerminal(t *testing.T) {
	checker := newScriptedChecker()
	checker.script[42] = []services.Outcome{
		services.OutcomePending,
		services.OutcomeQueryError,
		services.OutcomeCompleted,
	}
	metrics := telemetry.NewMetrics()
	s := newTestScheduler(checker, memory.NewStore(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, s.Schedule(42))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActivePolls))

	assert.Eventually(t, func() bool { return !s.Scheduled(42) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, checker.Calls(42))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ActivePolls))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, checker.Calls(42))
}

func TestScheduler_CancelStopsFutureChecks(t *testing.T) {
	checker := newScriptedChecker()
	s := newTestScheduler(checker, memory.NewStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, s.Schedule(7))
	assert.Eventually(t, func() bool { return checker.Calls(7) >= 2 }, 2*time.Second, 5*time.Millisecond)

	s.Cancel(7)
	s.Cancel(7)
	assert.False(t, s.Scheduled(7))

	// allow an in-flight run to finish
	time.Sleep(30 * time.Millisecond)
	seen := checker.Calls(7)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, checker.Calls(7))
}

func TestScheduler_DropsPermanentErrors(t *testing.T) {
	checker := newScriptedChecker()
	checker.errs[9] = application.NewMissingTokensError()
	checker.errs[10] = application.NewInternalError(errors.New("db down"))
	s := newTestScheduler(checker, memory.NewStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, s.Schedule(9))
	require.NoError(t, s.Schedule(10))

	assert.Eventually(t, func() bool { return !s.Scheduled(9) }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return checker.Calls(10) >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Scheduled(10))
}

func TestScheduler_StartResumesActiveSessions(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	active := testhelpers.CreatePendingOrder(t, ctx, store, 1, "10.00")
	testhelpers.CreatePollingSession(t, ctx, store, active, domain.PaymentToken{Value: "a", Provenance: domain.ExplicitToken})

	stopped := testhelpers.CreatePendingOrder(t, ctx, store, 2, "10.00")
	testhelpers.CreatePollingSession(t, ctx, store, stopped, domain.PaymentToken{Value: "b", Provenance: domain.ExplicitToken})
	_, err := store.StopPolling(ctx, 2)
	require.NoError(t, err)

	checker := newScriptedChecker()
	checker.script[1] = []services.Outcome{services.OutcomeCompleted}
	checker.script[3] = []services.Outcome{services.OutcomeFailed}
	s := newTestScheduler(checker, store, nil)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		s.Start(runCtx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	assert.Eventually(t, func() bool { return checker.Calls(1) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, checker.Calls(2))

	// a session created after start is picked up by the resync ticker
	late := testhelpers.CreatePendingOrder(t, ctx, store, 3, "10.00")
	testhelpers.CreatePollingSession(t, ctx, store, late, domain.PaymentToken{Value: "c", Provenance: domain.ExplicitToken})
	assert.Eventually(t, func() bool { return checker.Calls(3) == 1 }, 2*time.Second, 5*time.Millisecond)

	checker.mu.Lock()
	for _, d := range checker.drivers {
		assert.Equal(t, domain.DriverScheduled, d)
	}
	checker.mu.Unlock()
}

func TestScheduler_ResyncPagesPastBatchSize(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		order := testhelpers.CreatePendingOrder(t, ctx, store, id, "10.00")
		testhelpers.CreatePollingSession(t, ctx, store, order, domain.PaymentToken{Value: "tok", Provenance: domain.ExplicitToken})
	}

	s := NewScheduler(newScriptedChecker(), store, SchedulerConfig{
		InitialDelay:    time.Hour,
		Interval:        time.Hour,
		ResyncInterval:  time.Hour,
		ResyncBatchSize: 2,
		CheckTimeout:    time.Second,
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.Resync(ctx)

	assert.Equal(t, 5, s.Len())
	for id := int64(1); id <= 5; id++ {
		assert.True(t, s.Scheduled(id), "order %d not scheduled", id)
	}
}

func TestPollSchedule(t *testing.T) {
	start := time.Date(2024, 12, 12, 10, 0, 0, 0, time.UTC)
	p := &pollSchedule{first: start.Add(15 * time.Second), every: 15 * time.Second}

	assert.Equal(t, start.Add(15*time.Second), p.Next(start))
	assert.Equal(t, start.Add(30*time.Second), p.Next(start.Add(15*time.Second)))
	assert.Equal(t, start.Add(61*time.Second), p.Next(start.Add(46*time.Second)))
}
