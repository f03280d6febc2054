package race_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/burnreg/burnreg/race"
)

func TestSignalSetOnce(t *testing.T) {
	t.Parallel()
	sig := race.NewSignal()
	require.False(t, sig.Fired())
	_, ok := sig.Winner()
	require.False(t, ok)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sig.Set(race.Winner{Label: fmt.Sprintf("w%d", i), UID: uint16(i + 1)}) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.True(t, sig.Fired())
	w, ok := sig.Winner()
	require.True(t, ok)
	require.NotEmpty(t, w.Label)

	select {
	case <-sig.Done():
	default:
		require.Fail(t, "done channel must be closed once the signal is set")
	}

	require.False(t, sig.Set(race.Winner{Label: "late"}))
	again, _ := sig.Winner()
	require.Equal(t, w, again)
}

func TestAttemptLogRejectsDuplicates(t *testing.T) {
	t.Parallel()
	log := race.NewAttemptLog()
	require.NoError(t, log.Append(race.Attempt{Label: "w1", Outcome: race.Failed}))
	require.NoError(t, log.Append(race.Attempt{Label: "w2", Outcome: race.Skipped}))
	require.ErrorIs(t, log.Append(race.Attempt{Label: "w1", Outcome: race.Success}), race.ErrDuplicateAttempt)

	records := log.Records()
	require.Len(t, records, 2)
	require.Equal(t, race.Failed, records[0].Outcome)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "skipped", race.Skipped.String())
	require.Equal(t, "failed", race.Failed.String())
	require.Equal(t, "success", race.Success.String())
}
