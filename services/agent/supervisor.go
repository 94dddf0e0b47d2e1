package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderwatch/lib/scrapers/portal"
)

const (
	defaultOkDelay    = time.Minute
	defaultErrorDelay = time.Minute * 5
)

// Supervisor loops forever: check the gate, run, sleep. A failed run
// only lengthens the next delay, it never terminates the loop.
type Supervisor struct {
	Service *Service
	Gate    Gate

	// delay after a successful or skipped run
	OkDelay time.Duration
	// delay after a failed run, to avoid hammering a broken portal
	ErrorDelay time.Duration
}

func NewSupervisor(cfg Config) (*Supervisor, error) {
	clock, err := NewSystemClock(cfg.Times.Timezone)
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	okDelay := defaultOkDelay
	if cfg.Sleep.OkSeconds > 0 {
		okDelay = time.Duration(cfg.Sleep.OkSeconds) * time.Second
	}
	errorDelay := defaultErrorDelay
	if cfg.Sleep.ErrorSeconds > 0 {
		errorDelay = time.Duration(cfg.Sleep.ErrorSeconds) * time.Second
	}

	return &Supervisor{
		Service:    NewService(cfg),
		Gate:       NewGate(cfg.Times, clock),
		OkDelay:    okDelay,
		ErrorDelay: errorDelay,
	}, nil
}

// Run returns only when ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		delay := s.OkDelay

		if reason, allowed := s.Gate.Check(); !allowed {
			slog.InfoContext(ctx, "run skipped", "reason", string(reason))
		} else if err := s.runProtected(ctx); err != nil {
			if errors.Is(err, portal.ErrInvalidCredentials) {
				// retrying sooner will not fix credentials, but the
				// operator may; keep the short cadence and keep shouting
				slog.ErrorContext(ctx, "authentication failed, please check credentials", "err", err)
			} else {
				slog.ErrorContext(ctx, "run failed", "err", err)
				delay = s.ErrorDelay
			}
		} else {
			slog.InfoContext(ctx, "run completed")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Supervisor) runProtected(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()
	return s.Service.RunOnce(ctx)
}
