package race

import (
	"context"
	"errors"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/window"
)

// Memberships is the part of chain.Client the watcher reads.
type Memberships interface {
	Membership(ctx context.Context, address chain.Address, domain chain.DomainID) (uint16, error)
}

// Watcher polls the membership of the participants while a window is open
// and sets the signal for the first one found registered.
type Watcher struct {
	cfg   Config
	clock clock.Clock
}

func NewWatcher(cfg Config, clk clock.Clock) *Watcher {
	return &Watcher{cfg: cfg, clock: clk}
}

// Watch polls immediately and then every WatchInterval until a membership is
// confirmed, the window deadline passes or ctx is canceled. submitted is
// closed once all submission tasks completed; in bounded mode this ends the
// watch after one final poll.
func (w *Watcher) Watch(
	ctx context.Context,
	ledger Memberships,
	participants []Participant,
	win window.Window,
	sig *Signal,
	submitted <-chan struct{},
) {
	logger := logging.FromContext(ctx)
	ticker := w.clock.Ticker(w.cfg.WatchInterval)
	defer ticker.Stop()
	deadline := w.clock.Timer(win.Deadline.Sub(w.clock.Now()))
	defer deadline.Stop()

	for {
		if w.poll(ctx, ledger, participants, sig) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-sig.Done():
			return
		case <-deadline.C:
			logger.Debug("window deadline passed, final membership poll")
			w.poll(ctx, ledger, participants, sig)
			return
		case <-submitted:
			if w.cfg.BoundedAttempts {
				logger.Debug("all submissions completed, final membership poll")
				w.poll(ctx, ledger, participants, sig)
				return
			}
			submitted = nil
		case <-ticker.C:
		}
	}
}

// poll reports whether the signal is set once it returns.
func (w *Watcher) poll(ctx context.Context, ledger Memberships, participants []Participant, sig *Signal) bool {
	logger := logging.FromContext(ctx)
	for _, p := range participants {
		if sig.Fired() {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		uid, err := ledger.Membership(ctx, p.Identity.HotAddress(), w.cfg.Domain)
		switch {
		case errors.Is(err, chain.ErrNotRegistered):
			continue
		case err != nil:
			pollFailuresMetric.Inc()
			logger.Debug("membership query failed", zap.String("identity", p.Identity.Label()), zap.Error(err))
			continue
		case uid == 0:
			continue
		}
		if sig.Set(Winner{Label: p.Identity.Label(), UID: uid}) {
			logger.Info("membership confirmed", zap.String("identity", p.Identity.Label()), zap.Uint16("uid", uid))
		}
		return true
	}
	return sig.Fired()
}
