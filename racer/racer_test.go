package racer_test

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/config"
	"github.com/burnreg/burnreg/identity"
	"github.com/burnreg/burnreg/journal"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/race"
	"github.com/burnreg/burnreg/racer"
)

type mapLoader map[string]*identity.Identity

func (m mapLoader) Load(label string) (*identity.Identity, error) {
	if id, ok := m[label]; ok {
		return id, nil
	}
	return nil, identity.ErrNotFound
}

func newIdentity(t *testing.T, label string) *identity.Identity {
	_, cold, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	hot, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return identity.New(label, cold, hot)
}

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     uint64            `json:"id"`
}

// ledger is a JSON-RPC fake accepting the registration of one hot address.
type ledger struct {
	t        *testing.T
	requests atomic.Int64
	winner   chain.Address

	mu         sync.Mutex
	registered map[chain.Address]uint16
}

func newLedger(t *testing.T, winner chain.Address) (*ledger, *httptest.Server) {
	l := &ledger{t: t, winner: winner, registered: make(map[chain.Address]uint16)}
	srv := httptest.NewServer(http.HandlerFunc(l.serve))
	t.Cleanup(srv.Close)
	return l, srv
}

func (l *ledger) serve(w http.ResponseWriter, r *http.Request) {
	l.requests.Add(1)
	var call rpcCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res := map[string]any{"jsonrpc": "2.0", "id": call.ID}
	switch call.Method {
	case "chain_getHead":
		res["result"] = map[string]any{"height": 20, "timestamp": time.Now().UnixMilli()}
	case "registration_getCost":
		res["result"] = "1000000000"
	case "account_getBalance":
		res["result"] = "2000000000"
	case "registration_getMembership":
		var addr chain.Address
		_ = json.Unmarshal(call.Params[0], &addr)
		l.mu.Lock()
		uid, ok := l.registered[addr]
		l.mu.Unlock()
		if ok {
			res["result"] = uid
		} else {
			res["result"] = nil
		}
	case "registration_submit":
		var params struct {
			Hotkey chain.Address `json:"hotkey"`
		}
		_ = json.Unmarshal(call.Params[0], &params)
		if params.Hotkey == l.winner {
			l.mu.Lock()
			l.registered[params.Hotkey] = 5
			l.mu.Unlock()
			res["result"] = map[string]any{"accepted": true, "hash": "0x01"}
		} else {
			res["error"] = map[string]any{"code": 1010, "message": "too many registrations this interval"}
		}
	default:
		res["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func testConfig(t *testing.T, endpoint string, labels ...string) config.Config {
	cfg := config.DefaultConfig()
	cfg.DbDir = t.TempDir()
	cfg.Endpoint = endpoint
	cfg.Identities = labels
	cfg.QueryRetries = 0
	cfg.DialTimeout = 5 * time.Second
	cfg.Window.Period = 10
	cfg.Window.RaceTimeout = 2 * time.Second
	cfg.Race.Domain = 3
	cfg.Race.WatchInterval = 10 * time.Millisecond
	cfg.Race.MaxCycles = 1
	return *cfg
}

func testContext(t *testing.T) context.Context {
	return logging.NewContext(context.Background(), zaptest.NewLogger(t))
}

func TestNoIdentitiesMakesNoRemoteCalls(t *testing.T) {
	t.Parallel()
	l, srv := newLedger(t, chain.Address(""))

	_, err := racer.New(testContext(t), testConfig(t, srv.URL, "w1", "w2"), mapLoader{})
	require.ErrorIs(t, err, racer.ErrNoIdentities)
	require.Zero(t, l.requests.Load())
}

func TestUnreachableLedgerIsFatal(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	loader := mapLoader{"w1": newIdentity(t, "w1")}
	_, err := racer.New(testContext(t), testConfig(t, srv.URL, "w1"), loader)
	require.ErrorIs(t, err, chain.ErrUnavailable)
}

func TestRaceWon(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	w1, w2 := newIdentity(t, "w1"), newIdentity(t, "w2")
	loader := mapLoader{"w1": w1, "w2": w2}
	_, srv := newLedger(t, w2.HotAddress())

	cfg := testConfig(t, srv.URL, "w1", "w2", "missing")
	port := uint16(0)
	cfg.MetricsPort = &port

	r, err := racer.New(testContext(t), cfg, loader)
	req.NoError(err)
	req.NotNil(r.MetricsAddr())

	result, err := r.Run(testContext(t))
	req.NoError(err)
	req.NotNil(result.Winner)
	req.Equal(race.Winner{Label: "w2", UID: 5}, *result.Winner)
	req.Len(result.Cycles, 1)

	attempts := make(map[string]race.Outcome)
	for _, a := range result.Cycles[0].Attempts {
		attempts[a.Label] = a.Outcome
	}
	req.Equal(race.Success, attempts["w2"])
	req.NotContains(attempts, "missing")
	req.NoError(r.Close())

	j, err := journal.Open(cfg.DbDir)
	req.NoError(err)
	t.Cleanup(func() { require.NoError(t, j.Close()) })
	cycles, err := j.Cycles(context.Background())
	req.NoError(err)
	req.Len(cycles, 1)
	req.Equal(&race.Winner{Label: "w2", UID: 5}, cycles[0].Winner)
}

func TestRaceExhausted(t *testing.T) {
	t.Parallel()
	w1 := newIdentity(t, "w1")
	_, srv := newLedger(t, chain.Address("nobody"))

	cfg := testConfig(t, srv.URL, "w1")
	cfg.Window.RaceTimeout = 100 * time.Millisecond

	r, err := racer.New(testContext(t), cfg, mapLoader{"w1": w1})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	result, err := r.Run(testContext(t))
	require.ErrorIs(t, err, race.ErrExhausted)
	require.Nil(t, result.Winner)
	require.Len(t, result.Cycles, 1)
	require.Equal(t, race.Failed, result.Cycles[0].Attempts[0].Outcome)
}
