package race

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/burnreg/burnreg/chain"
)

func DefaultConfig() Config {
	return Config{
		Domain:        1,
		Tip:           chain.NewAmount(10_000_000),
		MaxWorkers:    8,
		MaxAttempts:   3,
		WatchInterval: 200 * time.Millisecond,
	}
}

//nolint:lll
type Config struct {
	Domain           chain.DomainID `long:"netuid"             description:"Domain (subnet) to register into"`
	Tip              chain.Amount   `long:"tip"                description:"Priority tip added to every submission, in display units"`
	MaxWorkers       int            `long:"max-workers"        description:"Maximum number of concurrent submissions"`
	MaxCycles        uint           `long:"max-cycles"         description:"Give up after this many windows (0 races until a win)"`
	MaxAttempts      uint           `long:"max-attempts"       description:"Submissions per identity per window when the ledger is unreachable"`
	WatchInterval    time.Duration  `long:"watch-interval"     description:"Membership poll interval while a window is open"`
	Stagger          bool           `long:"stagger"            description:"Launch identities one block apart instead of simultaneously"`
	BoundedAttempts  bool           `long:"bounded-attempts"   description:"Stop watching once all submissions completed (one final membership poll)"`
	WaitForInclusion bool           `long:"wait-for-inclusion" description:"Wait for each submission to be included in a block"`
}

func (c Config) Validate() error {
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1, got %d", c.MaxWorkers)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %v", c.WatchInterval)
	}
	return nil
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("netuid", uint16(c.Domain))
	enc.AddString("tip", c.Tip.String())
	enc.AddInt("max-workers", c.MaxWorkers)
	enc.AddUint("max-cycles", c.MaxCycles)
	enc.AddUint("max-attempts", c.MaxAttempts)
	enc.AddDuration("watch-interval", c.WatchInterval)
	enc.AddBool("stagger", c.Stagger)
	enc.AddBool("bounded-attempts", c.BoundedAttempts)
	enc.AddBool("wait-for-inclusion", c.WaitForInclusion)
	return nil
}
