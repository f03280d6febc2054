package race

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/window"
)

var (
	ErrExhausted      = errors.New("no registration won within the configured cycles")
	ErrNoParticipants = errors.New("no participants to race with")
)

// Scheduler blocks until the window of a cycle is about to open.
type Scheduler interface {
	Next(ctx context.Context, cycle uint, prev *window.Window) window.Window
}

// Journal persists the outcome of every raced window.
type Journal interface {
	RecordCycle(ctx context.Context, report CycleReport) error
}

type CycleReport struct {
	RaceID   string
	Window   window.Window
	Cost     *chain.Amount
	Attempts []Attempt
	Winner   *Winner
}

// implement zap.ObjectMarshaler interface.
func (r CycleReport) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("race_id", r.RaceID)
	if err := enc.AddObject("window", r.Window); err != nil {
		return err
	}
	if r.Cost != nil {
		enc.AddString("cost", r.Cost.String())
	}
	if r.Winner != nil {
		enc.AddString("winner", r.Winner.Label)
		enc.AddUint16("uid", r.Winner.UID)
	}
	return enc.AddArray("attempts", attempts(r.Attempts))
}

type Result struct {
	Winner *Winner
	Cycles []CycleReport
}

type state int

const (
	stateIdle state = iota
	stateScheduling
	stateRacing
	stateEvaluating
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateScheduling:
		return "scheduling"
	case stateRacing:
		return "racing"
	case stateEvaluating:
		return "evaluating"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Orchestrator drives the race: it waits for a window, launches all
// participants into it while watching memberships, and repeats with the
// next window until one identity is confirmed registered.
type Orchestrator struct {
	cfg          Config
	scheduler    Scheduler
	info         chain.Client
	participants []Participant
	coordinator  *Coordinator
	watcher      *Watcher
	journal      Journal
	clock        clock.Clock
}

type OrchestratorOption func(*Orchestrator)

func WithJournal(j Journal) OrchestratorOption {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

func WithClock(clk clock.Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clock = clk
	}
}

// NewOrchestrator creates an orchestrator racing participants. info is the
// session used for cost and membership queries.
func NewOrchestrator(
	cfg Config,
	windowCfg window.Config,
	scheduler Scheduler,
	info chain.Client,
	participants []Participant,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	o := &Orchestrator{
		cfg:          cfg,
		scheduler:    scheduler,
		info:         info,
		participants: participants,
		clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.coordinator = NewCoordinator(cfg, windowCfg, o.clock)
	o.watcher = NewWatcher(cfg, o.clock)
	return o, nil
}

// Run races window after window. It returns the result with a winner, or
// ErrExhausted once MaxCycles windows passed without one, or the context error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	raceID := uuid.New()
	logger := logging.FromContext(ctx).Named("race").With(zap.Stringer("race_id", raceID))
	ctx = logging.NewContext(ctx, logger)

	result := &Result{}
	var (
		st     = stateIdle
		cycle  uint
		win    window.Window
		prev   *window.Window
		report CycleReport
	)
	for {
		logger.Debug("race state", zap.Stringer("state", st), zap.Uint("cycle", cycle))
		switch st {
		case stateIdle:
			logger.Info("race starting", zap.Int("participants", len(o.participants)), zap.Object("config", o.cfg))
			st = stateScheduling

		case stateScheduling:
			if o.cfg.MaxCycles > 0 && cycle >= o.cfg.MaxCycles {
				logger.Info("giving up", zap.Uint("cycles", cycle))
				return result, ErrExhausted
			}
			cycle++
			win = o.scheduler.Next(ctx, cycle, prev)
			if err := ctx.Err(); err != nil {
				return result, err
			}
			st = stateRacing

		case stateRacing:
			report = o.race(ctx, raceID.String(), win)
			st = stateEvaluating

		case stateEvaluating:
			result.Cycles = append(result.Cycles, report)
			cyclesMetric.Inc()
			if o.journal != nil {
				if err := o.journal.RecordCycle(ctx, report); err != nil {
					logger.Warn("failed to journal cycle", zap.Error(err))
				}
			}
			if report.Winner != nil {
				winsMetric.Inc()
				result.Winner = report.Winner
				logger.Info("registration won",
					zap.String("identity", report.Winner.Label),
					zap.Uint16("uid", report.Winner.UID),
					zap.Uint("cycle", cycle),
				)
				o.sweep(ctx)
				st = stateDone
				continue
			}
			logger.Info("window closed without a registration", zap.Object("report", report))
			if err := ctx.Err(); err != nil {
				return result, err
			}
			w := win
			prev = &w
			st = stateScheduling

		case stateDone:
			return result, nil
		}
	}
}

// race runs the coordinator and the watcher over one window and joins both.
func (o *Orchestrator) race(ctx context.Context, raceID string, win window.Window) CycleReport {
	logger := logging.FromContext(ctx).With(zap.Uint("cycle", win.Cycle))
	ctx = logging.NewContext(ctx, logger)
	logger.Info("window open", zap.Object("window", win))

	cost := FetchCost(ctx, o.info, o.cfg.Domain)
	sig := NewSignal()
	submitted := make(chan struct{})
	var records []Attempt
	var eg errgroup.Group
	eg.Go(func() error {
		defer close(submitted)
		records = o.coordinator.Launch(ctx, o.participants, win, cost, sig)
		return nil
	})
	eg.Go(func() error {
		o.watcher.Watch(ctx, o.info, o.participants, win, sig, submitted)
		return nil
	})
	_ = eg.Wait()

	report := CycleReport{RaceID: raceID, Window: win, Cost: cost.Wait(ctx), Attempts: records}
	if w, ok := sig.Winner(); ok {
		report.Winner = &w
	}
	return report
}

// sweep logs the membership of every participant once the race is won.
func (o *Orchestrator) sweep(ctx context.Context) {
	logger := logging.FromContext(ctx)
	for _, p := range o.participants {
		uid, err := o.info.Membership(ctx, p.Identity.HotAddress(), o.cfg.Domain)
		switch {
		case errors.Is(err, chain.ErrNotRegistered):
			logger.Info("identity not registered", zap.String("identity", p.Identity.Label()))
		case err != nil:
			logger.Info("identity membership unknown", zap.String("identity", p.Identity.Label()), zap.Error(err))
		default:
			logger.Info("identity registered", zap.String("identity", p.Identity.Label()), zap.Uint16("uid", uid))
		}
	}
}
