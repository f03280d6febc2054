package race_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/chain/mocks"
	"github.com/burnreg/burnreg/race"
)

func TestShouldAttempt(t *testing.T) {
	t.Parallel()
	id := newIdentity(t, "w1")
	cost := tao(1)

	t.Run("unknown cost", func(t *testing.T) {
		t.Parallel()
		balances := mocks.NewMockClient(gomock.NewController(t))
		d := race.ShouldAttempt(testContext(t), balances, id, nil)
		require.True(t, d.Attempt)
	})
	t.Run("unknown balance", func(t *testing.T) {
		t.Parallel()
		balances := mocks.NewMockClient(gomock.NewController(t))
		balances.EXPECT().Balance(gomock.Any(), id.ColdAddress()).Return(chain.Amount{}, chain.ErrUnavailable)
		d := race.ShouldAttempt(testContext(t), balances, id, race.KnownCost(&cost))
		require.True(t, d.Attempt)
		require.Equal(t, "balance unknown", d.Reason)
	})
	t.Run("insufficient", func(t *testing.T) {
		t.Parallel()
		balances := mocks.NewMockClient(gomock.NewController(t))
		balances.EXPECT().Balance(gomock.Any(), id.ColdAddress()).Return(tao(0.999999999), nil)
		d := race.ShouldAttempt(testContext(t), balances, id, race.KnownCost(&cost))
		require.False(t, d.Attempt)
		require.Contains(t, d.Reason, "insufficient")
	})
	t.Run("exactly enough", func(t *testing.T) {
		t.Parallel()
		balances := mocks.NewMockClient(gomock.NewController(t))
		balances.EXPECT().Balance(gomock.Any(), id.ColdAddress()).Return(tao(1), nil)
		require.True(t, race.ShouldAttempt(testContext(t), balances, id, race.KnownCost(&cost)).Attempt)
	})
	t.Run("approximate balance", func(t *testing.T) {
		t.Parallel()
		var approx chain.Amount
		require.NoError(t, json.Unmarshal([]byte(`"0.5 τ"`), &approx))
		balances := mocks.NewMockClient(gomock.NewController(t))
		balances.EXPECT().Balance(gomock.Any(), id.ColdAddress()).Return(approx, nil)
		require.False(t, race.ShouldAttempt(testContext(t), balances, id, race.KnownCost(&cost)).Attempt)
	})
}
