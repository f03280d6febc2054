package session_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/burnreg/burnreg/chain/mocks"
	"github.com/burnreg/burnreg/session"
)

type testSession struct {
	*mocks.MockClient
	closed *atomic.Int32
}

func (s testSession) Close() { s.closed.Add(1) }

func dialer(t *testing.T, failing map[string]bool, closed *atomic.Int32) session.Dialer {
	return func(ctx context.Context, label string) (session.Session, error) {
		if failing[label] {
			return nil, errors.New("connection refused")
		}
		return testSession{MockClient: mocks.NewMockClient(gomock.NewController(t)), closed: closed}, nil
	}
}

func TestOpenAllSessions(t *testing.T) {
	t.Parallel()
	var closed atomic.Int32
	m, err := session.Open(context.Background(), []string{"w2", "w1", "w3"}, dialer(t, nil, &closed), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w2", "w3"}, m.Labels())

	_, ok := m.Session("w2")
	require.True(t, ok)
	_, ok = m.Session("w4")
	require.False(t, ok)

	m.Close()
	require.EqualValues(t, 3, closed.Load())
}

func TestOpenPartialFailure(t *testing.T) {
	t.Parallel()
	var closed atomic.Int32
	m, err := session.Open(context.Background(), []string{"w1", "w2"}, dialer(t, map[string]bool{"w1": true}, &closed), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"w2"}, m.Labels())
}

func TestOpenBelowMinimum(t *testing.T) {
	t.Parallel()
	var closed atomic.Int32
	failing := map[string]bool{"w1": true, "w2": true}
	_, err := session.Open(context.Background(), []string{"w1", "w2", "w3"}, dialer(t, failing, &closed), 2)
	require.ErrorIs(t, err, &session.ConnectingErrors{})
	require.ErrorContains(t, err, "w1")
	require.ErrorContains(t, err, "w2")
	require.EqualValues(t, 1, closed.Load(), "established sessions are closed on failure")
}

func TestOpenNoLabels(t *testing.T) {
	t.Parallel()
	var closed atomic.Int32
	_, err := session.Open(context.Background(), nil, dialer(t, nil, &closed), 1)
	require.ErrorIs(t, err, &session.ConnectingErrors{})
}

func TestNilManager(t *testing.T) {
	t.Parallel()
	var m *session.Manager
	require.Empty(t, m.Labels())
	_, ok := m.Session("w1")
	require.False(t, ok)
	m.Close()
}
