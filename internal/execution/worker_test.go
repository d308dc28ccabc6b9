package execution_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payguard/internal/execution"
	"payguard/internal/platform/config"
	id "payguard/pkg/domain"
)

type capturingPublisher struct {
	mu     sync.Mutex
	seen   []execution.Signal
	failFn func(execution.Signal) error
}

func (p *capturingPublisher) Publish(_ context.Context, signal execution.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFn != nil {
		if err := p.failFn(signal); err != nil {
			return err
		}
	}
	p.seen = append(p.seen, signal)
	return nil
}

func (p *capturingPublisher) published() []execution.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]execution.Signal(nil), p.seen...)
}

type rememberingDedupe struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (d *rememberingDedupe) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys == nil {
		d.keys = make(map[string]bool)
	}
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func testConfig() config.Execution {
	return config.Execution{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  3,
	}
}

func newSignal() execution.Signal {
	return execution.Signal{
		EntityID:        id.EntityID(uuid.New()),
		EntityType:      "payout",
		ResultingStatus: "approved",
		AmountMinor:     9_000,
		Currency:        "EUR",
	}
}

func TestWorker_DrainPublishesAndMarks(t *testing.T) {
	outbox := execution.NewInMemoryOutbox()
	publisher := &capturingPublisher{}
	worker := execution.NewWorker(outbox, publisher, nil, testConfig(), slog.New(slog.DiscardHandler))

	signal := newSignal()
	require.NoError(t, outbox.Enqueue(context.Background(), signal))

	require.NoError(t, worker.Drain(context.Background()))

	assert.Equal(t, []execution.Signal{signal}, publisher.published())

	rows, err := outbox.NextBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows, "published rows must not be re-delivered")
}

func TestWorker_PublishFailureRetriesNextDrain(t *testing.T) {
	outbox := execution.NewInMemoryOutbox()
	var calls int
	publisher := &capturingPublisher{failFn: func(execution.Signal) error {
		calls++
		if calls == 1 {
			return errors.New("broker unavailable")
		}
		return nil
	}}
	worker := execution.NewWorker(outbox, publisher, nil, testConfig(), slog.New(slog.DiscardHandler))

	require.NoError(t, outbox.Enqueue(context.Background(), newSignal()))

	require.NoError(t, worker.Drain(context.Background()))
	assert.Empty(t, publisher.published(), "failed publish must not mark the row")

	require.NoError(t, worker.Drain(context.Background()))
	assert.Len(t, publisher.published(), 1)
}

func TestWorker_ParksRowAfterMaxAttempts(t *testing.T) {
	outbox := execution.NewInMemoryOutbox()
	publisher := &capturingPublisher{failFn: func(execution.Signal) error {
		return errors.New("broker unavailable")
	}}
	cfg := testConfig()
	worker := execution.NewWorker(outbox, publisher, nil, cfg, slog.New(slog.DiscardHandler))

	require.NoError(t, outbox.Enqueue(context.Background(), newSignal()))

	// Attempts exhaust, then the poisoned row is parked instead of wedging
	// the queue forever.
	for i := 0; i < cfg.MaxAttempts+1; i++ {
		require.NoError(t, worker.Drain(context.Background()))
	}

	rows, err := outbox.NextBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, publisher.published())
}

func TestWorker_DedupeSuppressesReplay(t *testing.T) {
	outbox := execution.NewInMemoryOutbox()
	publisher := &capturingPublisher{}
	worker := execution.NewWorker(outbox, publisher, &rememberingDedupe{}, testConfig(), slog.New(slog.DiscardHandler))

	signal := newSignal()
	// The same logical signal lands twice, as at-least-once delivery allows.
	require.NoError(t, outbox.Enqueue(context.Background(), signal))
	require.NoError(t, outbox.Enqueue(context.Background(), signal))

	require.NoError(t, worker.Drain(context.Background()))

	assert.Len(t, publisher.published(), 1, "dedupe should suppress the replay")

	rows, err := outbox.NextBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows, "both rows are consumed either way")
}

func TestWorker_RunStopsOnContextCancel(t *testing.T) {
	outbox := execution.NewInMemoryOutbox()
	worker := execution.NewWorker(outbox, &capturingPublisher{}, nil, testConfig(), slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
