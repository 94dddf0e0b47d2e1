package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"orderwatch/lib/scrapers/portal"

	"github.com/stretchr/testify/require"
)

func openGate() Gate {
	return NewGate(
		TimesConfig{StartHour: 0, FinishHour: 24},
		fixedClock{now: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)},
	)
}

func closedGate() Gate {
	return NewGate(
		TimesConfig{StartHour: 9, FinishHour: 17},
		fixedClock{now: time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)},
	)
}

func countingService(attempts *atomic.Int64, open func(ctx context.Context) (PortalSession, error)) *Service {
	svc := NewService(Config{})
	svc.OpenSession = func(ctx context.Context) (PortalSession, error) {
		attempts.Add(1)
		return open(ctx)
	}
	return svc
}

func waitForAttempts(t *testing.T, attempts *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(time.Second * 5)
	for time.Now().Before(deadline) {
		if attempts.Load() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected at least %d run attempts, got %d", want, attempts.Load())
}

func TestSupervisorSurvivesFailingRuns(t *testing.T) {
	var attempts atomic.Int64
	svc := countingService(&attempts, func(ctx context.Context) (PortalSession, error) {
		return nil, fmt.Errorf("portal is down")
	})

	sup := &Supervisor{
		Service: svc,
		Gate:    openGate(),
		// a failure must pick the error delay, or this test times out
		OkDelay:    time.Hour,
		ErrorDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	waitForAttempts(t, &attempts, 3)
	cancel()
	<-done
}

func TestSupervisorShortDelayAfterAuthFailure(t *testing.T) {
	var attempts atomic.Int64
	svc := countingService(&attempts, func(ctx context.Context) (PortalSession, error) {
		return &fakeSession{loginErr: portal.ErrInvalidCredentials}, nil
	})

	sup := &Supervisor{
		Service: svc,
		Gate:    openGate(),
		// auth failure keeps the short cadence
		OkDelay:    time.Millisecond,
		ErrorDelay: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	waitForAttempts(t, &attempts, 3)
	cancel()
	<-done
}

func TestSupervisorRecoversFromPanic(t *testing.T) {
	var attempts atomic.Int64
	svc := countingService(&attempts, func(ctx context.Context) (PortalSession, error) {
		panic("unexpected markup")
	})

	sup := &Supervisor{
		Service:    svc,
		Gate:       openGate(),
		OkDelay:    time.Hour,
		ErrorDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	waitForAttempts(t, &attempts, 2)
	cancel()
	<-done
}

func TestSupervisorSkipsWhileGated(t *testing.T) {
	var attempts atomic.Int64
	svc := countingService(&attempts, func(ctx context.Context) (PortalSession, error) {
		return &fakeSession{}, nil
	})

	sup := &Supervisor{
		Service:    svc,
		Gate:       closedGate(),
		OkDelay:    time.Millisecond,
		ErrorDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	time.Sleep(time.Millisecond * 100)
	cancel()
	<-done

	require.Equal(t, int64(0), attempts.Load())
}
