package window

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

type Mode string

const (
	// ModeBlock waits for the ledger height to reach the next multiple of
	// the period.
	ModeBlock Mode = "block"
	// ModeClock projects the next window from a known anchor (the time of a
	// past window) advanced by whole cycles of Period*BlockTime.
	ModeClock Mode = "clock"
)

const (
	defaultBlockTime       = 12 * time.Second
	defaultLead            = time.Second
	defaultRaceTimeout     = 3 * time.Second
	defaultCoarsePoll      = 2 * time.Second
	defaultFinePoll        = 10 * time.Millisecond
	defaultMaxPollFailures = 5
)

func DefaultConfig() Config {
	return Config{
		Mode:            ModeBlock,
		BlockTime:       defaultBlockTime,
		Lead:            defaultLead,
		RaceTimeout:     defaultRaceTimeout,
		CoarsePoll:      defaultCoarsePoll,
		FinePoll:        defaultFinePoll,
		MaxPollFailures: defaultMaxPollFailures,
	}
}

//nolint:lll
type Config struct {
	Mode            Mode          `long:"window-mode"       description:"How windows are located: block (height polling) or clock (anchor projection)" choice:"block" choice:"clock"`
	Period          uint64        `long:"period"            description:"Window period in blocks (0 queries the domain tempo)"`
	BlockTime       time.Duration `long:"block-time"        description:"Expected time between blocks"`
	Anchor          Anchor        `long:"anchor"            description:"Time of a past window opening, RFC3339 or '2006-01-02 15:04:05' UTC (clock mode)"`
	Lead            time.Duration `long:"lead"              description:"How long before a projected opening to launch (clock mode)"`
	RaceTimeout     time.Duration `long:"race-timeout"      description:"How long a window stays open for submissions after it opens"`
	CoarsePoll      time.Duration `long:"coarse-poll"       description:"Height poll interval while more than one block away"`
	FinePoll        time.Duration `long:"fine-poll"         description:"Height poll interval within one block of the boundary"`
	MaxPollFailures int           `long:"max-poll-failures" description:"Consecutive height poll failures before firing immediately (0 never gives up)"`
}

// CycleLength is the wall clock length of one period.
func (c Config) CycleLength(period uint64) time.Duration {
	return time.Duration(period) * c.BlockTime
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeBlock:
		if c.CoarsePoll <= 0 || c.FinePoll <= 0 {
			return fmt.Errorf("poll intervals must be positive (coarse %v, fine %v)", c.CoarsePoll, c.FinePoll)
		}
	case ModeClock:
		if c.Anchor.Time().IsZero() {
			return fmt.Errorf("clock mode requires an anchor")
		}
		if c.BlockTime <= 0 {
			return fmt.Errorf("clock mode requires a positive block time")
		}
	default:
		return fmt.Errorf("unknown window mode %q", c.Mode)
	}
	if c.RaceTimeout <= 0 {
		return fmt.Errorf("race timeout must be positive, got %v", c.RaceTimeout)
	}
	return nil
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("mode", string(c.Mode))
	enc.AddUint64("period", c.Period)
	enc.AddDuration("block-time", c.BlockTime)
	if !c.Anchor.Time().IsZero() {
		enc.AddTime("anchor", c.Anchor.Time())
	}
	enc.AddDuration("lead", c.Lead)
	enc.AddDuration("race-timeout", c.RaceTimeout)
	enc.AddDuration("coarse-poll", c.CoarsePoll)
	enc.AddDuration("fine-poll", c.FinePoll)
	enc.AddInt("max-poll-failures", c.MaxPollFailures)
	return nil
}

const anchorLayout = "2006-01-02 15:04:05"

type Anchor time.Time

// UnmarshalFlag implements flags.Unmarshaler.
func (a *Anchor) UnmarshalFlag(value string) error {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.ParseInLocation(anchorLayout, value, time.UTC)
		if err != nil {
			return fmt.Errorf("anchor %q is neither RFC3339 nor %q", value, anchorLayout)
		}
	}
	*a = Anchor(t)
	return nil
}

func (a Anchor) Time() time.Time {
	return time.Time(a)
}
