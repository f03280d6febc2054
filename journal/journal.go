// Package journal persists raced windows so a restarted racer can resume
// from the last known window instead of a stale configured anchor.
package journal

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	xdr "github.com/nullstyle/go-xdr/xdr3"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/race"
	"github.com/burnreg/burnreg/window"
)

var ErrNotFound = leveldb.ErrNotFound

var (
	anchorKey   = []byte("anchor")
	cyclePrefix = []byte("cycle/")
)

type attemptEntry struct {
	Label      string
	Outcome    uint32
	Detail     string
	AtUnixNano int64
}

type cycleEntry struct {
	RaceID           string
	Cycle            uint32
	Target           uint64
	Synced           bool
	OpensUnixNano    int64
	DeadlineUnixNano int64
	HasCost          bool
	Cost             string // base units
	Won              bool
	Winner           string
	WinnerUID        uint32
	Attempts         []attemptEntry
}

type Journal struct {
	db *leveldb.DB
}

var _ race.Journal = (*Journal)(nil)

func Open(dir string) (*Journal, error) {
	dbPath := filepath.Join(dir, "journal")
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database @ %s: %w", dbPath, err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func cycleKey(opens time.Time, raceID string, cycle uint) []byte {
	key := append([]byte(nil), cyclePrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(opens.UnixNano()))
	key = append(key, raceID...)
	return binary.BigEndian.AppendUint32(key, uint32(cycle))
}

// RecordCycle stores the report. A window located on the ledger also
// becomes the new anchor.
func (j *Journal) RecordCycle(ctx context.Context, report race.CycleReport) error {
	entry := cycleEntry{
		RaceID:           report.RaceID,
		Cycle:            uint32(report.Window.Cycle),
		Target:           report.Window.Target,
		Synced:           report.Window.Synced,
		OpensUnixNano:    report.Window.Opens.UnixNano(),
		DeadlineUnixNano: report.Window.Deadline.UnixNano(),
	}
	if report.Cost != nil {
		entry.HasCost = true
		entry.Cost = report.Cost.Base().ToBig().String()
	}
	if report.Winner != nil {
		entry.Won = true
		entry.Winner = report.Winner.Label
		entry.WinnerUID = uint32(report.Winner.UID)
	}
	for _, a := range report.Attempts {
		entry.Attempts = append(entry.Attempts, attemptEntry{
			Label:      a.Label,
			Outcome:    uint32(a.Outcome),
			Detail:     a.Detail,
			AtUnixNano: a.At.UnixNano(),
		})
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &entry); err != nil {
		return fmt.Errorf("failed serializing cycle: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(cycleKey(report.Window.Opens, report.RaceID, report.Window.Cycle), buf.Bytes())
	if report.Window.Synced {
		batch.Put(anchorKey, binary.BigEndian.AppendUint64(nil, uint64(report.Window.Opens.UnixNano())))
	}
	if err := j.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("storing cycle in DB: %w", err)
	}
	logging.FromContext(ctx).Debug("journaled cycle", zap.Uint("cycle", report.Window.Cycle))
	return nil
}

// Anchor returns the opening time of the last window located on the ledger.
func (j *Journal) Anchor(ctx context.Context) (time.Time, error) {
	data, err := j.db.Get(anchorKey, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("get anchor from DB: %w", err)
	}
	if len(data) != 8 {
		return time.Time{}, fmt.Errorf("corrupted anchor (%d bytes)", len(data))
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(data))).UTC(), nil
}

// Cycles returns all journaled cycles ordered by window opening.
func (j *Journal) Cycles(ctx context.Context) ([]race.CycleReport, error) {
	iter := j.db.NewIterator(util.BytesPrefix(cyclePrefix), nil)
	defer iter.Release()

	var reports []race.CycleReport
	for iter.Next() {
		var entry cycleEntry
		if _, err := xdr.Unmarshal(bytes.NewReader(iter.Value()), &entry); err != nil {
			return nil, fmt.Errorf("failed to deserialize: %w", err)
		}
		report, err := entry.report()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating cycles: %w", err)
	}
	return reports, nil
}

func (e *cycleEntry) report() (race.CycleReport, error) {
	r := race.CycleReport{
		RaceID: e.RaceID,
		Window: window.Window{
			Cycle:    uint(e.Cycle),
			Target:   e.Target,
			Opens:    time.Unix(0, e.OpensUnixNano).UTC(),
			Deadline: time.Unix(0, e.DeadlineUnixNano).UTC(),
			Synced:   e.Synced,
		},
	}
	if e.HasCost {
		cost, err := chain.ParseBaseUnits(e.Cost)
		if err != nil {
			return race.CycleReport{}, fmt.Errorf("journaled cost: %w", err)
		}
		r.Cost = &cost
	}
	if e.Won {
		r.Winner = &race.Winner{Label: e.Winner, UID: uint16(e.WinnerUID)}
	}
	for _, a := range e.Attempts {
		r.Attempts = append(r.Attempts, race.Attempt{
			Label:   a.Label,
			Outcome: race.Outcome(a.Outcome),
			Detail:  a.Detail,
			At:      time.Unix(0, a.AtUnixNano).UTC(),
		})
	}
	return r, nil
}

// IsNotFound reports whether err means nothing was journaled yet.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
