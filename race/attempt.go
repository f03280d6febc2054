package race

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

var ErrDuplicateAttempt = errors.New("identity already has an attempt in this cycle")

type Outcome int

const (
	Skipped Outcome = iota
	Failed
	Success
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Success:
		return "success"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Attempt is what one identity did in one cycle.
type Attempt struct {
	Label   string
	Outcome Outcome
	Detail  string
	At      time.Time
}

// implement zap.ObjectMarshaler interface.
func (a Attempt) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("identity", a.Label)
	enc.AddString("outcome", a.Outcome.String())
	enc.AddString("detail", a.Detail)
	enc.AddTime("at", a.At)
	return nil
}

type attempts []Attempt

func (as attempts) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, a := range as {
		if err := enc.AppendObject(a); err != nil {
			return err
		}
	}
	return nil
}

// AttemptLog collects the attempts of one cycle, at most one per identity.
// It is safe for concurrent use.
type AttemptLog struct {
	mu      sync.Mutex
	records []Attempt
	seen    map[string]struct{}
}

func NewAttemptLog() *AttemptLog {
	return &AttemptLog{seen: make(map[string]struct{})}
}

func (l *AttemptLog) Append(a Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[a.Label]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAttempt, a.Label)
	}
	l.seen[a.Label] = struct{}{}
	l.records = append(l.records, a)
	return nil
}

// Records returns a copy of the attempts in completion order.
func (l *AttemptLog) Records() []Attempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Attempt(nil), l.records...)
}
