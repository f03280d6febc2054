package race

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/window"
)

// Participant is an identity together with its pre-established session.
type Participant struct {
	Identity chain.Registrant
	Session  chain.Client
}

// Coordinator launches one submission task per participant for a window.
type Coordinator struct {
	cfg       Config
	blockTime time.Duration
	lead      time.Duration
	clock     clock.Clock
}

func NewCoordinator(cfg Config, windowCfg window.Config, clk clock.Clock) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		blockTime: windowCfg.BlockTime,
		lead:      windowCfg.Lead,
		clock:     clk,
	}
}

// Launch runs the submission tasks of all participants, at most MaxWorkers at
// a time, and returns once each has recorded exactly one attempt.
func (c *Coordinator) Launch(
	ctx context.Context,
	participants []Participant,
	w window.Window,
	cost *Cost,
	sig *Signal,
) []Attempt {
	logger := logging.FromContext(ctx)
	log := NewAttemptLog()

	var eg errgroup.Group
	if c.cfg.MaxWorkers > 0 {
		eg.SetLimit(c.cfg.MaxWorkers)
	}
	for i, p := range participants {
		p := p
		slot := 0
		if c.cfg.Stagger {
			slot = i
		}
		launch := w.Launch(slot, c.blockTime, c.lead)
		eg.Go(func() error {
			a := c.attempt(ctx, p, w, launch, cost, sig)
			attemptsMetric.WithLabelValues(a.Outcome.String()).Inc()
			if err := log.Append(a); err != nil {
				logger.Error("dropping attempt", zap.Error(err))
			}
			return nil
		})
	}
	_ = eg.Wait()
	return log.Records()
}

func (c *Coordinator) attempt(
	ctx context.Context,
	p Participant,
	w window.Window,
	launch time.Time,
	cost *Cost,
	sig *Signal,
) Attempt {
	label := p.Identity.Label()
	logger := logging.FromContext(ctx).With(
		zap.String("identity", label),
		zap.String("hotkey", p.Identity.HotAddress().Short()),
	)
	ctx = logging.NewContext(ctx, logger)
	record := func(o Outcome, detail string) Attempt {
		return Attempt{Label: label, Outcome: o, Detail: detail, At: c.clock.Now()}
	}

	if !launch.Before(w.Deadline) {
		return record(Skipped, "launch slot after window deadline")
	}
	if wait := launch.Sub(c.clock.Now()); wait > 0 {
		logger.Debug("waiting for launch slot", zap.Time("launch", launch), zap.Duration("sleep", wait))
		if reason, stop := c.sleep(ctx, wait, sig); stop {
			return record(Skipped, reason)
		}
	}
	fireDelayMetric.Observe(c.clock.Since(launch).Seconds())

	if reason, stop := c.interrupted(ctx, w, sig); stop {
		return record(Skipped, reason)
	}
	decision := ShouldAttempt(ctx, p.Session, p.Identity, cost)
	if !decision.Attempt {
		logger.Info("skipping identity", zap.String("reason", decision.Reason))
		return record(Skipped, decision.Reason)
	}

	var lastErr error
	for n := uint(1); n <= max(c.cfg.MaxAttempts, 1); n++ {
		if reason, stop := c.interrupted(ctx, w, sig); stop {
			if lastErr != nil {
				return record(Failed, fmt.Sprintf("%v (gave up: %s)", lastErr, reason))
			}
			return record(Skipped, reason)
		}
		logger.Info("submitting registration", zap.Uint("attempt", n))
		receipt, err := p.Session.SubmitRegistration(
			ctx,
			p.Identity,
			c.cfg.Domain,
			c.cfg.Tip,
			chain.SubmitOptions{WaitForInclusion: c.cfg.WaitForInclusion},
		)
		if err == nil {
			logger.Info("registration accepted", zap.String("hash", receipt.Hash))
			return record(Success, "accepted "+receipt.Hash)
		}
		lastErr = err
		if !errors.Is(err, chain.ErrUnavailable) {
			break
		}
		logger.Warn("submission failed", zap.Uint("attempt", n), zap.Error(err))
	}
	logger.Warn("registration failed", zap.Error(lastErr))
	return record(Failed, lastErr.Error())
}

func (c *Coordinator) interrupted(ctx context.Context, w window.Window, sig *Signal) (string, bool) {
	switch {
	case sig.Fired():
		return "race already won", true
	case ctx.Err() != nil:
		return "canceled", true
	case w.Expired(c.clock.Now()):
		return "window deadline passed", true
	}
	return "", false
}

func (c *Coordinator) sleep(ctx context.Context, d time.Duration, sig *Signal) (string, bool) {
	t := c.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "canceled", true
	case <-sig.Done():
		return "race already won", true
	case <-t.C:
		return "", false
	}
}
