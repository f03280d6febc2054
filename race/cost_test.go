package race_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/chain/mocks"
	"github.com/burnreg/burnreg/race"
)

func TestFetchCost(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ledger := mocks.NewMockClient(gomock.NewController(t))
	ledger.EXPECT().RegistrationCost(gomock.Any(), chain.DomainID(3)).Return(tao(1), nil)

	cost := race.FetchCost(testContext(t), ledger, 3).Wait(testContext(t))
	req.NotNil(cost)
	req.Zero(cost.Cmp(tao(1)))
}

func TestFetchCostUnavailable(t *testing.T) {
	t.Parallel()
	ledger := mocks.NewMockClient(gomock.NewController(t))
	ledger.EXPECT().RegistrationCost(gomock.Any(), gomock.Any()).Return(chain.Amount{}, chain.ErrUnavailable)

	require.Nil(t, race.FetchCost(testContext(t), ledger, 3).Wait(testContext(t)))
}

func TestCostWaitCanceled(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	ledger := mocks.NewMockClient(gomock.NewController(t))
	ledger.EXPECT().RegistrationCost(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, chain.DomainID) (chain.Amount, error) {
			<-release
			return tao(1), nil
		})

	pending := race.FetchCost(testContext(t), ledger, 3)
	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()
	require.Nil(t, pending.Wait(ctx))
	close(release)
	require.NotNil(t, pending.Wait(testContext(t)))

	var unknown *race.Cost
	require.Nil(t, unknown.Wait(testContext(t)))
}

func TestShouldAttemptReadsBalanceWhileCostResolves(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	id := newIdentity(t, "w1")
	balanceRead := make(chan struct{})
	var overlapped atomic.Bool

	ledger := mocks.NewMockClient(gomock.NewController(t))
	ledger.EXPECT().RegistrationCost(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, chain.DomainID) (chain.Amount, error) {
			select {
			case <-balanceRead:
				overlapped.Store(true)
			case <-time.After(time.Second):
			}
			return tao(1), nil
		})
	balances := mocks.NewMockClient(gomock.NewController(t))
	balances.EXPECT().Balance(gomock.Any(), id.ColdAddress()).
		DoAndReturn(func(context.Context, chain.Address) (chain.Amount, error) {
			close(balanceRead)
			return tao(2), nil
		})

	d := race.ShouldAttempt(testContext(t), balances, id, race.FetchCost(testContext(t), ledger, 3))
	req.True(d.Attempt)
	req.Contains(d.Reason, "covers cost")
	req.True(overlapped.Load())
}

func TestShouldAttemptCostUnavailable(t *testing.T) {
	t.Parallel()
	id := newIdentity(t, "w1")
	ledger := mocks.NewMockClient(gomock.NewController(t))
	ledger.EXPECT().RegistrationCost(gomock.Any(), gomock.Any()).Return(chain.Amount{}, chain.ErrUnavailable)
	balances := mocks.NewMockClient(gomock.NewController(t))
	balances.EXPECT().Balance(gomock.Any(), id.ColdAddress()).Return(tao(0.1), nil)

	d := race.ShouldAttempt(testContext(t), balances, id, race.FetchCost(testContext(t), ledger, 3))
	require.True(t, d.Attempt)
	require.Equal(t, "registration cost unknown", d.Reason)
}
