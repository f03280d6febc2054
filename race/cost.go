package race

import (
	"context"

	"go.uber.org/zap"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
)

// CostQuerier is the part of chain.Client that prices a registration.
type CostQuerier interface {
	RegistrationCost(ctx context.Context, domain chain.DomainID) (chain.Amount, error)
}

// Cost is the registration cost of one window. It resolves once; until then
// Wait blocks. A nil *Cost is an unknown cost.
type Cost struct {
	done   chan struct{}
	amount *chain.Amount
}

// KnownCost returns an already resolved cost. A nil amount means unknown.
func KnownCost(amount *chain.Amount) *Cost {
	c := &Cost{done: make(chan struct{}), amount: amount}
	close(c.done)
	return c
}

// FetchCost queries the cost in the background so the query overlaps the
// launch wait and the balance queries of the participants.
func FetchCost(ctx context.Context, ledger CostQuerier, domain chain.DomainID) *Cost {
	c := &Cost{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		logger := logging.FromContext(ctx)
		amount, err := ledger.RegistrationCost(ctx, domain)
		if err != nil {
			logger.Warn("registration cost unavailable", zap.Error(err))
			return
		}
		logger.Info("registration cost", zap.Stringer("cost", amount))
		c.amount = &amount
	}()
	return c
}

// Wait returns the cost, or nil when it is unknown or ctx ends first.
func (c *Cost) Wait(ctx context.Context) *chain.Amount {
	if c == nil {
		return nil
	}
	select {
	case <-c.done:
		return c.amount
	case <-ctx.Done():
		return nil
	}
}
