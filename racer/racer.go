// Package racer wires the configured identities, ledger sessions, window
// scheduler and journal into a registration race.
package racer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/config"
	"github.com/burnreg/burnreg/identity"
	"github.com/burnreg/burnreg/journal"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/race"
	"github.com/burnreg/burnreg/session"
	"github.com/burnreg/burnreg/window"
)

var ErrNoIdentities = errors.New("no identity could be loaded")

const tempoCacheSize = 16

type Racer struct {
	cfg          config.Config
	journal      *journal.Journal
	info         *chain.RPCClient
	sessions     *session.Manager
	orchestrator *race.Orchestrator

	metricsListener net.Listener
}

// New loads the identities and establishes every session up front. It fails
// without touching the ledger when no identity can be loaded.
func New(ctx context.Context, cfg config.Config, loader identity.Loader) (*Racer, error) {
	logger := logging.FromContext(ctx)

	identities := identity.LoadAll(ctx, loader, cfg.Identities)
	if len(identities) == 0 {
		return nil, fmt.Errorf("%w (requested %d)", ErrNoIdentities, len(cfg.Identities))
	}

	r := &Racer{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			r.Close()
		}
	}()

	if _, err := os.Stat(cfg.DbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.DbDir, 0o700); err != nil {
			return nil, err
		}
	}
	j, err := journal.Open(cfg.DbDir)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	r.journal = j
	if cfg.Window.Mode == window.ModeClock {
		r.cfg.Window.Anchor = resumeAnchor(ctx, j, cfg.Window.Anchor)
	}

	clientOpts := []chain.ClientOption{
		chain.WithRetries(cfg.QueryRetries),
		chain.WithLogger(logger.Named("rpc")),
	}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	info, err := chain.Dial(dialCtx, cfg.Endpoint, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to ledger: %w", err)
	}
	r.info = info

	labels := make([]string, 0, len(identities))
	for _, id := range identities {
		labels = append(labels, id.Label())
	}
	dial := func(ctx context.Context, label string) (session.Session, error) {
		c, err := chain.Dial(ctx, cfg.Endpoint, clientOpts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	r.sessions, err = session.Open(dialCtx, labels, dial, 1)
	if err != nil {
		return nil, err
	}

	participants := make([]race.Participant, 0, len(identities))
	for _, id := range identities {
		s, found := r.sessions.Session(id.Label())
		if !found {
			logger.Warn("identity left out of the race: no session", zap.String("identity", id.Label()))
			continue
		}
		participants = append(participants, race.Participant{Identity: id, Session: s})
	}

	ledger, err := chain.NewCachingClient(tempoCacheSize, info)
	if err != nil {
		return nil, err
	}
	scheduler := window.NewScheduler(r.cfg.Window, cfg.Race.Domain, ledger)
	r.orchestrator, err = race.NewOrchestrator(
		cfg.Race,
		r.cfg.Window,
		scheduler,
		ledger,
		participants,
		race.WithJournal(j),
	)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsPort != nil {
		addr := net.JoinHostPort("", strconv.Itoa(int(*cfg.MetricsPort)))
		r.metricsListener, err = net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to listen: %v", err)
		}
	}

	ok = true
	return r, nil
}

// resumeAnchor prefers the journaled anchor when it is later than the
// configured one.
func resumeAnchor(ctx context.Context, j *journal.Journal, configured window.Anchor) window.Anchor {
	logger := logging.FromContext(ctx)
	stored, err := j.Anchor(ctx)
	switch {
	case journal.IsNotFound(err):
		return configured
	case err != nil:
		logger.Warn("failed to read journaled anchor", zap.Error(err))
		return configured
	case stored.After(configured.Time()):
		logger.Info("resuming from journaled anchor", zap.Time("anchor", stored))
		return window.Anchor(stored)
	}
	return configured
}

// MetricsAddr returns the address the metrics endpoint listens on, or nil.
func (r *Racer) MetricsAddr() net.Addr {
	if r.metricsListener == nil {
		return nil
	}
	return r.metricsListener.Addr()
}

// Run races until a registration is won, the cycles are exhausted or ctx
// is canceled. The metrics endpoint is served meanwhile.
func (r *Racer) Run(ctx context.Context) (*race.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := logging.FromContext(ctx)

	var eg errgroup.Group
	if r.metricsListener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Handler: mux, ReadHeaderTimeout: time.Second * 5}
		eg.Go(func() error {
			logger.Sugar().Infof("metrics server listening on %s", r.metricsListener.Addr())
			err := server.Serve(r.metricsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	var (
		result *race.Result
		err    error
	)
	eg.Go(func() error {
		defer cancel()
		result, err = r.orchestrator.Run(ctx)
		return nil
	})
	if err := eg.Wait(); err != nil {
		logger.Warn("metrics server failed", zap.Error(err))
	}
	return result, err
}

func (r *Racer) Close() error {
	r.sessions.Close()
	if r.info != nil {
		r.info.Close()
	}
	if r.metricsListener != nil {
		_ = r.metricsListener.Close()
	}
	if r.journal != nil {
		return r.journal.Close()
	}
	return nil
}
