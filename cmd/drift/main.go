// Package main implements the drift binary: plan, check, or apply the
// difference between a declared schema file and the schema a live backend
// reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/arkilian/drift/internal/config"
	drifterrors "github.com/arkilian/drift/internal/errors"
	"github.com/arkilian/drift/internal/reconcile"
	"github.com/arkilian/drift/internal/remote"
	"github.com/arkilian/drift/internal/schemafile"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile   string
		mode         string
		endpoint     string
		appID        string
		schemaFile   string
		hookURL      string
		ignoreIdx    bool
		disallowCols bool
		disallowIdx  bool
		managePriv   bool
		logLevel     string
		showVersion  bool
		showHelp     bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML, JSON, or TOML)")
	flag.StringVar(&mode, "mode", "plan", "Operation mode: plan, check, apply")
	flag.StringVar(&endpoint, "endpoint", "", "Base URL of the backend schema API")
	flag.StringVar(&appID, "app-id", "", "Application ID")
	flag.StringVar(&schemaFile, "schema", "", "Path to the desired schema file (JSON or YAML)")
	flag.StringVar(&hookURL, "hook-url", "", "Prefix applied to every function/trigger URL")
	flag.BoolVar(&ignoreIdx, "ignore-indexes", false, "Disable index management")
	flag.BoolVar(&disallowCols, "disallow-column-redefine", false, "Abort if the plan would update or delete a column")
	flag.BoolVar(&disallowIdx, "disallow-index-redefine", false, "Abort if the plan would update or delete an index")
	flag.BoolVar(&managePriv, "manage-private-indexes", false, "Also plan deletion of private (underscore-prefixed) indexes")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "drift - declarative schema reconciliation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: drift [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  drift --mode plan --schema schema.yaml --endpoint https://api.example.com/1 --app-id myapp\n")
		fmt.Fprintf(os.Stderr, "  drift --mode check --config drift.toml\n")
		fmt.Fprintf(os.Stderr, "  drift --mode apply --config drift.yaml --disallow-column-redefine\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_ENDPOINT      Base URL of the backend schema API\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_APP_ID        Application ID\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_MASTER_KEY    Master key authorizing schema mutations\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_SCHEMA_FILE   Path to the desired schema file\n")
		fmt.Fprintf(os.Stderr, "  DRIFT_HOOK_URL      Function/trigger URL prefix\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("drift version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// A local .env is optional; flags and real environment still win.
	_ = godotenv.Load()

	cfg, err := loadConfig(configFile, endpoint, appID, schemaFile, hookURL, logLevel, ignoreIdx, disallowCols, disallowIdx, managePriv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)

	if err := run(mode, cfg, logger); err != nil {
		if drifterrors.GetCategory(err) == drifterrors.ErrCategorySync {
			// Drift is a report, not a defect: dedicated exit code so CI
			// can tell "out of sync" from hard failures.
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		logger.Error().Str("code", drifterrors.GetCode(err)).Msg(err.Error())
		os.Exit(1)
	}
}

func run(mode string, cfg *config.Config, logger zerolog.Logger) error {
	desired, err := schemafile.Load(cfg.SchemaFile)
	if err != nil {
		return err
	}

	client := remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.Endpoint,
		Credentials: remote.Credentials{
			ApplicationID: cfg.AppID,
			MasterKey:     cfg.MasterKey,
		},
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})

	rec := reconcile.New(client, client, reconcile.Options{
		HookURL:                        cfg.HookURL,
		IgnoreIndexes:                  cfg.IgnoreIndexes,
		DisallowColumnRedefine:         cfg.DisallowColumnRedefine,
		DisallowIndexRedefine:          cfg.DisallowIndexRedefine,
		IgnoredPermissionKeys:          cfg.IgnoredPermissionKeys,
		PrivateIndexPrefix:             cfg.PrivateIndexPrefix,
		DisablePrivateIndexSuppression: cfg.ManagePrivateIndexes,
	})

	ctx := context.Background()

	switch mode {
	case "plan":
		commands, err := rec.ComputePlan(ctx, desired)
		if err != nil {
			return err
		}
		if len(commands) == 0 {
			logger.Info().Msg("schema is in sync, nothing to do")
			return nil
		}
		for _, cmd := range commands {
			fmt.Println(cmd.Render())
		}
		logger.Info().Int("commands", len(commands)).Msg("plan computed")
		return nil

	case "check":
		if err := rec.Check(ctx, desired); err != nil {
			return err
		}
		logger.Info().Msg("schema is in sync")
		return nil

	case "apply":
		start := time.Now()
		if err := rec.Apply(ctx, desired); err != nil {
			return err
		}
		logger.Info().Dur("elapsed", time.Since(start)).Msg("schema applied")
		return nil

	default:
		return fmt.Errorf("invalid mode: %s (must be plan, check, or apply)", mode)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, endpoint, appID, schemaFile, hookURL, logLevel string, ignoreIdx, disallowCols, disallowIdx, managePriv bool) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if appID != "" {
		cfg.AppID = appID
	}
	if schemaFile != "" {
		cfg.SchemaFile = schemaFile
	}
	if hookURL != "" {
		cfg.HookURL = hookURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if ignoreIdx {
		cfg.IgnoreIndexes = true
	}
	if disallowCols {
		cfg.DisallowColumnRedefine = true
	}
	if disallowIdx {
		cfg.DisallowIndexRedefine = true
	}
	if managePriv {
		cfg.ManagePrivateIndexes = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", "drift").Logger()
	switch level {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "warn":
		logger = logger.Level(zerolog.WarnLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}
