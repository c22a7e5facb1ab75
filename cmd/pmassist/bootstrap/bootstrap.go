// Package bootstrap wires configuration, logging, the remote client, the Topic Gate,
// the dispatcher and the conversation store for the pmassist subcommands.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/config"
	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/gemini"
	"github.com/papercomputeco/pmassist/pkg/logger"
	"github.com/papercomputeco/pmassist/pkg/merkle"
	"github.com/papercomputeco/pmassist/pkg/topicgate"
)

const (
	configFlag = "config"
	debugFlag  = "debug"
)

// AddFlags registers the persistent flags every subcommand reads.
func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(configFlag, "c", "", "Path to config file (default: ~/.pmassist/config.toml if present)")
	cmd.PersistentFlags().Bool(debugFlag, false, "Enable debug logging")
}

// DefaultConfigPath is ~/.pmassist/config.toml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pmassist", "config.toml")
}

// Config loads the file named by --config, falling back to the default path when it
// exists and to built-in defaults otherwise. It returns the path actually read.
func Config(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString(configFlag)
	if path == "" {
		if def := DefaultConfigPath(); def != "" {
			if _, err := os.Stat(def); err == nil {
				path = def
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Logger builds the console logger, or the JSON logger for long-running servers.
func Logger(cmd *cobra.Command, cfg *config.Config, json bool) *zap.Logger {
	debug, _ := cmd.Flags().GetBool(debugFlag)
	debug = debug || cfg.Log.Debug

	if json {
		return logger.NewJSONLogger(debug)
	}
	return logger.NewLogger(debug)
}

// Client builds the remote client from the configured key.
func Client(cfg *config.Config, logger *zap.Logger) (*gemini.Client, error) {
	key, err := cfg.APIKey(os.Getenv, logger)
	if err != nil {
		return nil, err
	}

	client := gemini.NewClient(key, logger,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithTimeout(time.Duration(cfg.Gemini.Timeout)),
	)
	logger.Debug("gemini client ready",
		zap.String("model", client.Model()),
		zap.String("key", client.KeyFingerprint()),
	)
	return client, nil
}

// Store opens the configured conversation store, creating the database directory when
// needed.
func Store(cfg *config.Config, logger *zap.Logger) (*conversation.Store, error) {
	if cfg.Storage.Backend == config.StorageMemory {
		logger.Debug("using in-memory storage")
		return conversation.NewStore(merkle.NewMemoryStorer(), conversation.NewMemoryIndex(), logger), nil
	}

	path := cfg.Storage.Path
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	return OpenSQLite(path, logger)
}

// OpenSQLite opens the DAG and the conversation index from one SQLite file.
func OpenSQLite(path string, logger *zap.Logger) (*conversation.Store, error) {
	dag, err := merkle.NewSQLiteStorer(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open node store %s: %w", path, err)
	}

	index, err := conversation.NewSQLiteIndex(path)
	if err != nil {
		dag.Close()
		return nil, fmt.Errorf("failed to open conversation index %s: %w", path, err)
	}

	logger.Debug("using SQLite storage", zap.String("path", path))
	return conversation.NewStore(dag, index, logger), nil
}

// App is a fully wired pmassist instance.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
	Client     *gemini.Client
	Gate       topicgate.Gate
	Dispatcher *dispatch.Dispatcher
	Store      *conversation.Store
}

// Options selects what New wires.
type Options struct {
	// JSONLogs selects the structured logger.
	JSONLogs bool

	// NoStore skips opening the conversation store.
	NoStore bool

	// Quiet discards all logs, for full-screen commands.
	Quiet bool
}

// New wires every component: config, logger, remote client, gate, dispatcher and,
// unless disabled, the store.
func New(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, path, err := Config(cmd)
	if err != nil {
		return nil, err
	}
	log := Logger(cmd, cfg, opts.JSONLogs)
	if opts.Quiet {
		log = zap.NewNop()
	}

	app := &App{Config: cfg, ConfigPath: path, Logger: log}

	app.Client, err = Client(cfg, log)
	if err != nil {
		return nil, err
	}

	app.Gate, err = topicgate.New(cfg.GateConfig(), app.Client, log)
	if err != nil {
		return nil, err
	}

	app.Dispatcher = dispatch.New(cfg.DispatchConfig(), app.Client, app.Gate, log)

	if !opts.NoStore {
		app.Store, err = Store(cfg, log)
		if err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Reconfigure applies a reloaded config to the gate and the dispatcher. The remote
// client and the store keep their original settings.
func (a *App) Reconfigure(cfg *config.Config) error {
	gate, err := topicgate.New(cfg.GateConfig(), a.Client, a.Logger)
	if err != nil {
		return err
	}
	a.Gate = gate
	a.Dispatcher.Reconfigure(cfg.DispatchConfig(), gate)
	a.Config = cfg
	return nil
}

// Close releases the store and flushes the logger.
func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	// Sync fails on terminals; nothing to do about it
	_ = a.Logger.Sync()
	return err
}

// IsMissingKey reports whether err is a missing API key.
func IsMissingKey(err error) bool {
	return errors.Is(err, config.ErrMissingAPIKey)
}
