// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2017-2023 The Spacemesh developers

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap/zapcore"

	"github.com/burnreg/burnreg/chain"
	"github.com/burnreg/burnreg/logging"
	"github.com/burnreg/burnreg/race"
	"github.com/burnreg/burnreg/window"
)

const (
	defaultDbDirName       = "db"
	defaultLogDirname      = "logs"
	defaultKeystoreDirname = "keystore"
	defaultMaxLogFiles     = 3
	defaultMaxLogFileSize  = 10
	defaultDialTimeout     = 30 * time.Second
)

// Config defines the configuration options for burnreg.
//
//nolint:lll
type Config struct {
	BaseDir        string  `long:"dir"            description:"The base directory that contains burnreg's journal, logs and keystore"`
	ConfigFile     string  `long:"configfile"     description:"Path to configuration file"                                             short:"c"`
	DbDir          string  `long:"dbdir"          description:"The directory to store the journal within"`
	LogDir         string  `long:"logdir"         description:"Directory to log output"`
	KeystoreDir    string  `long:"keystoredir"    description:"Directory holding the sealed identities"`
	DebugLog       bool    `long:"debuglog"       description:"Enable debug logs"`
	JSONLog        bool    `long:"jsonlog"        description:"Whether to log in JSON format"`
	MaxLogFiles    int     `long:"maxlogfiles"    description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int     `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MetricsPort    *uint16 `long:"metrics-port"   description:"The port to expose metrics"`

	Endpoint     string        `long:"endpoint"      description:"Ledger RPC endpoint"                                       env:"RPC_ENDPOINT"`
	Identities   []string      `long:"identity"      description:"Identity label to race with (repeatable, comma separated)"   short:"i"`
	QueryRetries int           `long:"query-retries" description:"Retries of a failed ledger query"`
	DialTimeout  time.Duration `long:"dial-timeout"  description:"Time allowed to establish all sessions"`

	Window window.Config `group:"Window"`
	Race   race.Config   `group:"Race"`
}

// DefaultConfig returns a config with default hardcoded values.
func DefaultConfig() *Config {
	baseDir := "./burnreg"
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		baseDir = filepath.Join(cacheDir, "burnreg")
	}

	return &Config{
		BaseDir:        baseDir,
		DbDir:          filepath.Join(baseDir, defaultDbDirName),
		LogDir:         filepath.Join(baseDir, defaultLogDirname),
		KeystoreDir:    filepath.Join(baseDir, defaultKeystoreDirname),
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		QueryRetries:   chain.DefaultQueryRetries,
		DialTimeout:    defaultDialTimeout,
		Window:         window.DefaultConfig(),
		Race:           race.DefaultConfig(),
	}
}

// ParseFlags reads values from command line arguments.
func ParseFlags(preCfg *Config) (*Config, error) {
	if _, err := flags.Parse(preCfg); err != nil {
		return nil, err
	}
	return preCfg, nil
}

// ReadConfigFile reads config from an ini file.
// It uses the provided `cfg` as a base config and overrides it with the values
// from the config file.
func ReadConfigFile(cfg *Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return cfg, nil
	}
	logging.FromContext(context.Background()).Sugar().Debugf("reading config from %s", cfg.ConfigFile)
	if err := flags.IniParse(cfg.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %v: %w", cfg.ConfigFile, err)
	}

	return cfg, nil
}

// SetupConfig expands paths, normalizes the identity list and initializes
// the filesystem.
func SetupConfig(cfg *Config) (*Config, error) {
	// If the provided base directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	defaultCfg := DefaultConfig()
	if cfg.BaseDir != defaultCfg.BaseDir {
		if cfg.LogDir == defaultCfg.LogDir {
			cfg.LogDir = filepath.Join(cfg.BaseDir, defaultLogDirname)
		}
		if cfg.DbDir == defaultCfg.DbDir {
			cfg.DbDir = filepath.Join(cfg.BaseDir, defaultDbDirName)
		}
		if cfg.KeystoreDir == defaultCfg.KeystoreDir {
			cfg.KeystoreDir = filepath.Join(cfg.BaseDir, defaultKeystoreDirname)
		}
	}

	cfg.BaseDir = cleanAndExpandPath(cfg.BaseDir)
	cfg.DbDir = cleanAndExpandPath(cfg.DbDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.KeystoreDir = cleanAndExpandPath(cfg.KeystoreDir)
	cfg.Identities = splitLabels(cfg.Identities)

	// Create the base directory if it doesn't already exist.
	if err := os.MkdirAll(cfg.BaseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", cfg.BaseDir, err)
	}

	return cfg, nil
}

// splitLabels splits comma separated labels, dropping blanks and duplicates.
func splitLabels(in []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range in {
		for _, label := range strings.Split(s, ",") {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}

// Validate reports configuration that cannot race.
func (c *Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("no ledger endpoint (set --endpoint or RPC_ENDPOINT)"))
	}
	if len(c.Identities) == 0 {
		errs = append(errs, errors.New("no identities configured (--identity)"))
	}
	if err := c.Window.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("window: %w", err))
	}
	if err := c.Race.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("race: %w", err))
	}
	if c.Race.Stagger {
		if err := c.validateStagger(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// validateStagger checks that the slot of the last identity, one block per
// identity after the opening, still launches before the window closes.
func (c *Config) validateStagger() error {
	if c.Window.BlockTime <= 0 {
		return errors.New("staggered launch requires a positive block time")
	}
	if len(c.Identities) < 2 {
		return nil
	}
	last := time.Duration(len(c.Identities)-1)*c.Window.BlockTime - c.Window.Lead
	if last >= c.Window.RaceTimeout {
		return fmt.Errorf(
			"staggered launch of %d identities needs a race timeout above %v (got %v)",
			len(c.Identities), last, c.Window.RaceTimeout,
		)
	}
	return nil
}

// implement zap.ObjectMarshaler interface.
func (c *Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("dir", c.BaseDir)
	enc.AddString("endpoint", c.Endpoint)
	enc.AddString("keystore", c.KeystoreDir)
	enc.AddInt("identities", len(c.Identities))
	enc.AddInt("query-retries", c.QueryRetries)
	enc.AddDuration("dial-timeout", c.DialTimeout)
	if err := enc.AddObject("window", c.Window); err != nil {
		return err
	}
	return enc.AddObject("race", c.Race)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
