package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"

	"github.com/burnreg/burnreg/race"
	"github.com/burnreg/burnreg/window"
)

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, exitCode(nil))
	require.Equal(t, 0, exitCode(&flags.Error{Type: flags.ErrHelp}))
	require.Equal(t, 1, exitCode(&flags.Error{Type: flags.ErrUnknownFlag}))
	require.Equal(t, 2, exitCode(fmt.Errorf("after 3 cycles: %w", race.ErrExhausted)))
	require.Equal(t, 1, exitCode(context.Canceled))
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &race.Result{Winner: &race.Winner{Label: "w2", UID: 7}})
	require.Equal(t, "registered w2 with uid 7\n", buf.String())

	buf.Reset()
	opens := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	printResult(&buf, &race.Result{Cycles: []race.CycleReport{{
		Window: window.Window{Cycle: 1, Opens: opens},
		Attempts: []race.Attempt{
			{Label: "w1", Outcome: race.Failed, Detail: "rejected"},
			{Label: "w2", Outcome: race.Skipped, Detail: "insufficient balance"},
		},
	}}})
	out := buf.String()
	require.Contains(t, out, "cycle 1")
	require.Contains(t, out, "w1")
	require.Contains(t, out, "rejected")
	require.Contains(t, out, "insufficient balance")

	buf.Reset()
	printResult(&buf, nil)
	require.Empty(t, buf.String())
}
