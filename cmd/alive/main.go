package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	alive "github.com/unowned-ai/alive/pkg"
	"github.com/unowned-ai/alive/pkg/config"
	pkgdb "github.com/unowned-ai/alive/pkg/db"
	"github.com/unowned-ai/alive/pkg/utils"
)

var (
	configPath string
	dbPath     string
	walMode    bool
	syncMode   string
	tzName     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "alive",
	Short:   "Record one small moment a day and keep your streak alive.",
	Version: fmt.Sprintf("v%s", alive.Version),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		level, err := cfg.LogLevel()
		if err != nil {
			return err
		}
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// loadConfig layers the config file, environment and explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = utils.GetDefaultConfigPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		c.Database.Path = dbPath
	}
	if flags.Changed("wal") {
		c.Database.WAL = walMode
	}
	if flags.Changed("sync") {
		c.Database.Sync = syncMode
	}
	if flags.Changed("tz") {
		c.Calendar.Timezone = tzName
	}
	return c, nil
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for alive.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(alive completion bash)

  Zsh:
    $ alive completion zsh > "${fpath[1]}/_alive"

  Fish:
    $ alive completion fish > ~/.config/fish/completions/alive.fish

  PowerShell:
    PS> alive completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of alive",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), alive.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the alive database",
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Create or upgrade the slots schema",
	Long: `Connects to the SQLite database (--db, ALIVE_DB or the config file) and applies
any schema migrations the slots component needs. A missing database is created.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		path, err := utils.ResolveAndEnsureDBPath(cfg.Database.Path)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Upgrading database at: %s (WAL: %t, Sync: %s)\n", path, cfg.Database.WAL, cfg.Database.Sync)

		dbConn, err := pkgdb.OpenDBConnection(path, cfg.Database.WAL, cfg.Database.Sync)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		return pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, logger)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the effective configuration to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = utils.GetDefaultConfigPath()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func initCmd() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (default: system-specific location)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the database file (default: system-specific location, or ':memory:')")
	rootCmd.PersistentFlags().BoolVar(&walMode, "wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode")
	rootCmd.PersistentFlags().StringVar(&syncMode, "sync", "FULL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	rootCmd.PersistentFlags().StringVar(&tzName, "tz", "", "IANA time zone that decides which day a moment belongs to (default: local)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	dbCmd.AddCommand(dbUpgradeCmd)

	initMomentsCmd()
	initPlanetCmd()
	initProfileCmd()
	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, configInitCmd,
		momentsCmd, planetCmd, statsCmd, timelineCmd, profileCmd, mcpCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
