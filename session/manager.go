// Package session keeps one pre-established ledger session per identity so
// that no connection setup happens inside a race window.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
)

const DefaultDialTimeout = 10 * time.Second

// Session is a ledger client bound to one connection.
type Session interface {
	chain.Client
	Close()
}

// Dialer opens the session used by the identity with the given label.
type Dialer func(ctx context.Context, label string) (Session, error)

type ConnectingErrors struct {
	errors *multierror.Error
}

func (e *ConnectingErrors) Error() string {
	return e.errors.Error()
}

func (e *ConnectingErrors) Unwrap() error {
	return e.errors.ErrorOrNil()
}

func (e *ConnectingErrors) Is(target error) bool {
	_, ok := target.(*ConnectingErrors)
	return ok
}

// Manager holds the sessions of the identities.
// Its Close() must be called when the sessions are no longer needed.
type Manager struct {
	sessions map[string]Session
}

// Open dials one session per label in parallel. Identities whose session
// fails are left out; fewer than minSessions established sessions is an error.
func Open(ctx context.Context, labels []string, dial Dialer, minSessions uint) (*Manager, error) {
	logger := logging.FromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		sessions = make(map[string]Session, len(labels))
		errs     *multierror.Error
	)
	var eg errgroup.Group
	for _, label := range labels {
		label := label
		eg.Go(func() error {
			s, err := dial(ctx, label)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("session for %s: %w", label, err))
				return nil
			}
			sessions[label] = s
			return nil
		})
	}
	_ = eg.Wait()

	if len(sessions) < int(minSessions) {
		for _, s := range sessions {
			s.Close()
		}
		if errs == nil {
			errs = multierror.Append(errs, fmt.Errorf("no sessions to open (need %d)", minSessions))
		}
		return nil, &ConnectingErrors{errors: errs}
	}
	if errs != nil {
		logger.Warn("some sessions failed to open", zap.Error(errs))
	}
	logger.Info("sessions established", zap.Int("count", len(sessions)), zap.Int("requested", len(labels)))
	return &Manager{sessions: sessions}, nil
}

func (m *Manager) Session(label string) (Session, bool) {
	if m == nil {
		return nil, false
	}
	s, ok := m.sessions[label]
	return s, ok
}

// Labels returns the labels holding a session, sorted.
func (m *Manager) Labels() []string {
	if m == nil {
		return nil
	}
	labels := maps.Keys(m.sessions)
	slices.Sort(labels)
	return labels
}

func (m *Manager) Close() {
	if m == nil {
		return
	}
	for _, s := range m.sessions {
		s.Close()
	}
}
