package race_test

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/chain/mocks"
	"github.com/burnreg/burnreg/identity"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/race"
	"github.com/burnreg/burnreg/window"
)

func testContext(t *testing.T) context.Context {
	return logging.NewContext(context.Background(), zaptest.NewLogger(t))
}

func tao(n float64) chain.Amount {
	a, err := chain.ParseDecimal(fmt.Sprintf("%.9f", n))
	if err != nil {
		panic(err)
	}
	return a
}

func newIdentity(t *testing.T, label string) *identity.Identity {
	_, cold, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	hot, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return identity.New(label, cold, hot)
}

type participant struct {
	race.Participant
	session *mocks.MockClient
}

func newParticipants(t *testing.T, n int) []participant {
	ctrl := gomock.NewController(t)
	ps := make([]participant, n)
	for i := range ps {
		session := mocks.NewMockClient(ctrl)
		ps[i] = participant{
			Participant: race.Participant{Identity: newIdentity(t, fmt.Sprintf("w%d", i+1)), Session: session},
			session:     session,
		}
	}
	return ps
}

func unwrap(ps []participant) []race.Participant {
	out := make([]race.Participant, len(ps))
	for i, p := range ps {
		out[i] = p.Participant
	}
	return out
}

func testConfig() race.Config {
	cfg := race.DefaultConfig()
	cfg.Domain = 3
	cfg.WatchInterval = 5 * time.Millisecond
	return cfg
}

func testWindowConfig() window.Config {
	cfg := window.DefaultConfig()
	cfg.BlockTime = 50 * time.Millisecond
	cfg.Lead = 0
	return cfg
}

func openWindow(cycle uint, timeout time.Duration) window.Window {
	now := time.Now()
	return window.Window{Cycle: cycle, Target: uint64(cycle) * 10, Opens: now, Deadline: now.Add(timeout), Synced: true}
}

// instantScheduler opens every window right away.
type instantScheduler struct {
	timeout time.Duration
	mu      sync.Mutex
	prevs   []*window.Window
}

func (s *instantScheduler) Next(ctx context.Context, cycle uint, prev *window.Window) window.Window {
	s.mu.Lock()
	s.prevs = append(s.prevs, prev)
	s.mu.Unlock()
	return openWindow(cycle, s.timeout)
}

type memJournal struct {
	mu      sync.Mutex
	reports []race.CycleReport
}

func (j *memJournal) RecordCycle(_ context.Context, r race.CycleReport) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reports = append(j.reports, r)
	return nil
}

func (j *memJournal) Reports() []race.CycleReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]race.CycleReport(nil), j.reports...)
}

func outcomes(records []race.Attempt) map[string]race.Outcome {
	m := make(map[string]race.Outcome, len(records))
	for _, r := range records {
		m[r.Label] = r.Outcome
	}
	return m
}
