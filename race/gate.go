package race

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
)

// Balances is the part of chain.Client the balance gate reads.
type Balances interface {
	Balance(ctx context.Context, address chain.Address) (chain.Amount, error)
}

type Decision struct {
	Attempt bool
	Reason  string
}

// ShouldAttempt decides whether registrant can afford the registration. The
// balance is read while the cost may still be resolving. Whatever is unknown
// (the cost or the balance) is resolved in favor of attempting.
func ShouldAttempt(ctx context.Context, balances Balances, registrant chain.Registrant, pending *Cost) Decision {
	logger := logging.FromContext(ctx).With(zap.String("identity", registrant.Label()))
	if pending == nil {
		return Decision{Attempt: true, Reason: "registration cost unknown"}
	}
	balance, err := balances.Balance(ctx, registrant.ColdAddress())
	if err != nil {
		logger.Info("balance unknown, attempting anyway", zap.Error(err))
		return Decision{Attempt: true, Reason: "balance unknown"}
	}
	cost := pending.Wait(ctx)
	if cost == nil {
		return Decision{Attempt: true, Reason: "registration cost unknown"}
	}
	if balance.Approx() || cost.Approx() {
		logger.Warn("comparing approximate amounts",
			zap.Stringer("balance", balance),
			zap.Stringer("cost", cost),
		)
	}
	if balance.Cmp(*cost) < 0 {
		return Decision{Reason: fmt.Sprintf("insufficient balance %s < %s", balance, cost)}
	}
	return Decision{Attempt: true, Reason: fmt.Sprintf("balance %s covers cost %s", balance, cost)}
}
