package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/burnreg/burnreg/config"
	"github.com/burnreg/burnreg/identity"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/race"
	"github.com/burnreg/burnreg/racer"
)

// Binary version.
// It should be passed during the build with '-ldflags "-X main.version="'.
var version = "unknown"

const (
	exitWon       = 0
	exitFatal     = 1
	exitExhausted = 2
)

// burnregMain is the true entry point. This function is required since
// defers created in the top-level scope of a main method aren't executed if
// os.Exit() is called.
func burnregMain() (*race.Result, error) {
	var err error
	// Start with a default Config with sane settings
	cfg := config.DefaultConfig()
	// Pre-parse the command line to check for an alternative Config file
	cfg, err = config.ParseFlags(cfg)
	if err != nil {
		return nil, err
	}
	cfg, err = config.ReadConfigFile(cfg)
	if err != nil {
		return nil, err
	}
	cfg, err = config.SetupConfig(cfg)
	if err != nil {
		return nil, err
	}
	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	cfg, err = config.ParseFlags(cfg)
	if err != nil {
		return nil, err
	}
	cfg, err = config.SetupConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logging
	logLevel := zap.InfoLevel
	if cfg.DebugLog {
		logLevel = zap.DebugLevel
	}
	logger := logging.New(
		logLevel,
		filepath.Join(cfg.LogDir, "burnreg.log"),
		cfg.JSONLog,
		logging.WithRotation(cfg.MaxLogFileSize, cfg.MaxLogFiles),
	)
	ctx := logging.NewContext(context.Background(), logger)
	defer func() {
		logger.Info("shutdown complete")
		_ = logger.Sync()
	}()

	logger.Info("starting burnreg", zap.String("version", version), zap.Object("config", cfg))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := identity.FirstOf(
		identity.NewMnemonicLoader(),
		identity.NewKeystore(cfg.KeystoreDir, identity.EnvOrPrompt(os.Stderr)),
	)
	r, err := racer.New(ctx, *cfg, loader)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the race: %w", err)
	}
	defer r.Close()

	return r.Run(ctx)
}

func printResult(w io.Writer, result *race.Result) {
	if result == nil {
		return
	}
	if result.Winner != nil {
		fmt.Fprintf(w, "registered %s with uid %d\n", result.Winner.Label, result.Winner.UID)
		return
	}
	for _, c := range result.Cycles {
		fmt.Fprintf(w, "cycle %d (window opened %s):\n", c.Window.Cycle, c.Window.Opens.Format(logging.TimeLayout))
		for _, a := range c.Attempts {
			fmt.Fprintf(w, "  %-16s %-8s %s\n", a.Label, a.Outcome, a.Detail)
		}
	}
}

func exitCode(err error) int {
	var flagsErr *flags.Error
	switch {
	case err == nil:
		return exitWon
	case errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp:
		return exitWon
	case errors.Is(err, race.ErrExhausted):
		return exitExhausted
	}
	return exitFatal
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	result, err := burnregMain()
	printResult(os.Stdout, result)
	var flagsErr *flags.Error
	// If it's the flag utility error don't print it,
	// because it was already printed.
	if err != nil && !errors.As(err, &flagsErr) {
		_, _ = fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
