package window

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
)

// Ledger is the part of chain.Client the scheduler reads.
type Ledger interface {
	Head(ctx context.Context) (chain.Head, error)
	Tempo(ctx context.Context, domain chain.DomainID) (uint64, error)
}

// Scheduler blocks until the next window is about to open.
// When a window cannot be located it degrades to firing immediately.
type Scheduler struct {
	cfg    Config
	domain chain.DomainID
	ledger Ledger
	clock  clock.Clock
}

type SchedulerOption func(*Scheduler)

func WithClock(clk clock.Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = clk
	}
}

func NewScheduler(cfg Config, domain chain.DomainID, ledger Ledger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		domain: domain,
		ledger: ledger,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next waits for the window of the given cycle. prev is the window of the
// previous cycle, if any; the next window is always strictly after it.
// Next returns early, with an unsynced window, when ctx is canceled.
func (s *Scheduler) Next(ctx context.Context, cycle uint, prev *Window) Window {
	logger := logging.FromContext(ctx).With(zap.Uint("cycle", cycle))
	ctx = logging.NewContext(ctx, logger)
	if s.cfg.Mode == ModeClock {
		return s.nextByClock(ctx, cycle, prev)
	}
	return s.nextByHeight(ctx, cycle, prev)
}

func (s *Scheduler) immediate(cycle uint) Window {
	now := s.clock.Now()
	return Window{Cycle: cycle, Opens: now, Deadline: now.Add(s.cfg.RaceTimeout)}
}

func (s *Scheduler) period(ctx context.Context) (uint64, bool) {
	if s.cfg.Period > 0 {
		return s.cfg.Period, true
	}
	tempo, err := s.ledger.Tempo(ctx, s.domain)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to query domain tempo", zap.Error(err))
		return 0, false
	}
	return tempo, tempo > 0
}

func (s *Scheduler) nextByHeight(ctx context.Context, cycle uint, prev *Window) Window {
	logger := logging.FromContext(ctx)
	period, ok := s.period(ctx)
	if !ok {
		logger.Warn("window period unknown, firing immediately")
		return s.immediate(cycle)
	}
	head, err := s.ledger.Head(ctx)
	if err != nil {
		logger.Warn("ledger height unavailable, firing immediately", zap.Error(err))
		return s.immediate(cycle)
	}

	from := head.Height
	if prev != nil && prev.Synced && prev.Target >= from {
		from = prev.Target + 1
	}
	target := NextBoundary(from, period)
	if target > head.Height {
		logger.Info("waiting for window boundary",
			zap.Uint64("height", head.Height),
			zap.Uint64("target", target),
			zap.Duration("eta", time.Duration(target-head.Height)*s.cfg.BlockTime),
		)
		if !s.waitForHeight(ctx, target, head.Height) {
			return s.immediate(cycle)
		}
	}

	now := s.clock.Now()
	logger.Info("window boundary reached", zap.Uint64("target", target))
	return Window{
		Cycle:    cycle,
		Target:   target,
		Opens:    now,
		Deadline: now.Add(s.cfg.RaceTimeout),
		Synced:   true,
	}
}

// waitForHeight polls coarsely while more than one block away from target,
// then finely. It reports false when it gave up or ctx was canceled.
func (s *Scheduler) waitForHeight(ctx context.Context, target, height uint64) bool {
	logger := logging.FromContext(ctx)
	failures := 0
	for height < target {
		interval := s.cfg.FinePoll
		if height+1 < target {
			interval = s.cfg.CoarsePoll
		}
		if err := s.sleep(ctx, interval); err != nil {
			return false
		}
		head, err := s.ledger.Head(ctx)
		if err != nil {
			failures++
			logger.Debug("height poll failed", zap.Error(err), zap.Int("failures", failures))
			if s.cfg.MaxPollFailures > 0 && failures >= s.cfg.MaxPollFailures {
				logger.Warn("lost track of ledger height, firing immediately", zap.Int("failures", failures))
				return false
			}
			continue
		}
		failures = 0
		if head.Height != height {
			logger.Debug("new block", zap.Uint64("height", head.Height), zap.Uint64("target", target))
		}
		height = head.Height
	}
	return true
}

func (s *Scheduler) nextByClock(ctx context.Context, cycle uint, prev *Window) Window {
	logger := logging.FromContext(ctx)
	period, ok := s.period(ctx)
	if !ok {
		logger.Warn("window period unknown, firing immediately")
		return s.immediate(cycle)
	}
	anchor := s.cfg.Anchor.Time()
	if prev != nil && prev.Synced && prev.Opens.After(anchor) {
		anchor = prev.Opens
	}
	if anchor.IsZero() {
		logger.Warn("no window anchor known, firing immediately")
		return s.immediate(cycle)
	}

	now := s.clock.Now()
	ref := now
	if prev != nil && !ref.After(prev.Opens) {
		ref = prev.Opens
	}
	opens := NextAnchor(anchor, ref, s.cfg.CycleLength(period))
	launch := opens.Add(-s.cfg.Lead)
	logger.Info("next window projected",
		zap.Time("anchor", anchor),
		zap.Time("opens", opens),
		zap.Duration("sleep", launch.Sub(now)),
	)
	if err := s.sleep(ctx, launch.Sub(now)); err != nil {
		return s.immediate(cycle)
	}
	return Window{
		Cycle:    cycle,
		Opens:    opens,
		Deadline: opens.Add(s.cfg.RaceTimeout),
		Synced:   true,
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := s.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
