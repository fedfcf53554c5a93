package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsoiks/heliotherm-bridge/internal/domain"
)

func TestRunner_StartReportsFirstRefreshFailure(t *testing.T) {
	conn := &fakeConn{acquireErr: domain.ErrConnectionFailed}
	coord := newTestCoordinator(t, Config{}, conn)
	runner := NewRunner(RunnerConfig{Interval: time.Hour}, coord, zerolog.Nop())
	defer runner.Stop()

	err := runner.Start(context.Background())
	if err == nil {
		t.Fatal("expected the first refresh error to be returned")
	}
	if runner.FailedCycles() == 0 {
		t.Error("expected the failed first refresh to be counted")
	}
}

func TestRunner_PollsOnInterval(t *testing.T) {
	client := newFakeClient()
	scriptAllFields(client)
	conn := &fakeConn{client: client}
	coord := newTestCoordinator(t, Config{}, conn)
	runner := NewRunner(RunnerConfig{Interval: 5 * time.Millisecond}, coord, zerolog.Nop())
	defer runner.Stop()

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	// The eager first refresh produced generation 1; the loop must have
	// advanced it within a few intervals.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if coord.Snapshot().Generation >= 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("generation stuck at %d; poll loop did not run", coord.Snapshot().Generation)
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	client := newFakeClient()
	scriptAllFields(client)
	conn := &fakeConn{client: client}
	coord := newTestCoordinator(t, Config{}, conn)
	runner := NewRunner(RunnerConfig{Interval: 5 * time.Millisecond}, coord, zerolog.Nop())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	runner.Stop()
	runner.Stop()
	gen := coord.Snapshot().Generation

	// No cycles after Stop.
	time.Sleep(30 * time.Millisecond)
	if got := coord.Snapshot().Generation; got != gen {
		t.Errorf("generation advanced after Stop: %d -> %d", gen, got)
	}
}

func TestRunner_StopBeforeStart(t *testing.T) {
	conn := &fakeConn{acquireErr: domain.ErrConnectionFailed}
	coord := newTestCoordinator(t, Config{}, conn)
	runner := NewRunner(RunnerConfig{}, coord, zerolog.Nop())

	// Must not panic or block.
	runner.Stop()
}

func TestRunner_ContextCancelStopsLoop(t *testing.T) {
	client := newFakeClient()
	scriptAllFields(client)
	conn := &fakeConn{client: client}
	coord := newTestCoordinator(t, Config{}, conn)
	runner := NewRunner(RunnerConfig{Interval: 5 * time.Millisecond}, coord, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := runner.Start(ctx); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		runner.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
