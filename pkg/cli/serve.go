package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/getmockd/reqcap/pkg/cli/internal/flags"
	"github.com/getmockd/reqcap/pkg/config"
	"github.com/getmockd/reqcap/pkg/engine"
	"github.com/getmockd/reqcap/pkg/logging"
	"github.com/getmockd/reqcap/pkg/requestlog"
)

// serveFlags holds the values bound to the serve command's flags.
type serveFlags struct {
	configFile    string
	port          int
	maxLogEntries int
	maxBodySize   flags.ByteSize
	authority     string
	logLevel      string
	logFormat     string
	logFile       string
	store         string
	dbPath        string
}

func newServeCommand() *cobra.Command {
	cmd, _ := buildServeCommand()
	return cmd
}

// buildServeCommand returns the serve command and the values its flags bind to.
func buildServeCommand() (*cobra.Command, *serveFlags) {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the capture server (foreground)",
		Long: `Start the capture server. Every request outside /__reqcap is captured,
logged and echoed back as JSON until the process receives SIGINT or SIGTERM.

Settings are resolved from defaults, then the config file, then REQCAP_*
environment variables, then flags.`,
		Example: `  # Start with defaults on :4280
  reqcap serve

  # Persist the request log and allow 50 MiB bodies
  reqcap serve --store sqlite --db-path ./requests.db --max-body-size 50MiB

  # Debug logging as JSON
  reqcap serve --log-level debug --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd, f)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "Path to a YAML config file (env: "+config.EnvConfig+")")
	fs.IntVarP(&f.port, "port", "p", config.DefaultPort, "Port to listen on (0 picks a free port)")
	fs.IntVar(&f.maxLogEntries, "max-log-entries", config.DefaultMaxLogEntries, "Maximum number of request log entries")
	f.maxBodySize = config.DefaultMaxBodySize
	fs.Var(&f.maxBodySize, "max-body-size", "Largest accepted request body, e.g. 512KiB or 10MB (0 disables the limit)")
	fs.StringVar(&f.authority, "authority", "", "Host used to resolve origin-form request targets (default localhost)")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "text", "Log format: text, json")
	fs.StringVar(&f.logFile, "log-file", "", "Also append logs to this file")
	fs.StringVar(&f.store, "store", config.DefaultStoreDriver, "Request log store: memory, sqlite")
	fs.StringVar(&f.dbPath, "db-path", config.DefaultDBPath, "SQLite database path for --store sqlite")

	return cmd, f
}

// loadServeConfig resolves the configuration and overlays explicitly set flags.
func loadServeConfig(cmd *cobra.Command, f *serveFlags) (*config.Config, error) {
	path := f.configFile
	if path == "" {
		path = config.ConfigFileFromEnv()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	fs := cmd.Flags()
	set := func(flag, key string, apply func()) {
		if fs.Changed(flag) {
			apply()
			cfg.Sources[key] = config.SourceFlag
		}
	}
	set("port", config.KeyPort, func() { cfg.Port = f.port })
	set("max-log-entries", config.KeyMaxLogEntries, func() { cfg.MaxLogEntries = f.maxLogEntries })
	set("max-body-size", config.KeyMaxBodySize, func() { cfg.MaxBodySize = int64(f.maxBodySize) })
	set("authority", config.KeyDefaultAuthority, func() { cfg.DefaultAuthority = f.authority })
	set("log-level", config.KeyLogLevel, func() { cfg.Log.Level = f.logLevel })
	set("log-format", config.KeyLogFormat, func() { cfg.Log.Format = f.logFormat })
	set("log-file", config.KeyLogFile, func() { cfg.Log.File = f.logFile })
	set("store", config.KeyStoreDriver, func() { cfg.Store.Driver = f.store })
	set("db-path", config.KeyStorePath, func() { cfg.Store.Path = f.dbPath })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runServe serves until ctx is done.
func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	lc := cfg.LoggingConfig()
	lc.Output = logOut
	log, closeLog, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	srv := engine.NewServer(cfg, engine.WithStore(store), engine.WithLogger(log))
	if err := srv.Start(); err != nil {
		return err
	}

	log.Info("reqcap ready",
		"addr", srv.Addr(),
		"store", cfg.Store.Driver,
		"max_body_size", humanize.IBytes(uint64(max(cfg.MaxBodySize, 0))),
		"config_sources", cfg.Sources,
	)

	<-ctx.Done()
	log.Info("shutting down")
	return srv.Shutdown(context.Background())
}

func openStore(cfg *config.Config, log *slog.Logger) (requestlog.Store, func() error, error) {
	if cfg.Store.Driver != config.StoreSQLite {
		return requestlog.NewMemoryStore(cfg.MaxLogEntries), func() error { return nil }, nil
	}
	store, err := requestlog.OpenSQLite(cfg.Store.Path, cfg.MaxLogEntries)
	if err != nil {
		return nil, nil, fmt.Errorf("open request log %s: %w", cfg.Store.Path, err)
	}
	store.SetLogger(log)
	return store, store.Close, nil
}
