package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lumipallolabs/treewatch/internal/config"
	"github.com/lumipallolabs/treewatch/internal/core"
	"github.com/lumipallolabs/treewatch/internal/ignore"
	"github.com/lumipallolabs/treewatch/internal/logging"
	"github.com/lumipallolabs/treewatch/internal/ui"
)

var cfgFile string

// flag name -> config key
var flagKeys = map[string]string{
	"backend":     config.KeyBackend,
	"ignore":      config.KeyIgnore,
	"log-level":   config.KeyLogLevel,
	"log-file":    config.KeyLogFile,
	"workers":     config.KeyWorkers,
	"show-hidden": config.KeyShowHidden,
}

var rootCmd = &cobra.Command{
	Use:   "treewatch [path]",
	Short: "Watch a directory tree and keep a live view of it",
	Long: `treewatch scans a directory, then keeps an in-memory tree of it in sync
with the file system as entries are created and deleted below it.

Without a subcommand it opens the interactive view. Settings are read from
flags, TREEWATCH_* environment variables and $HOME/.config/treewatch/config.yaml.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runUI,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/treewatch/config.yaml)")
	flags.String("backend", config.BackendFSNotify, "event backend: fsnotify or fsevents (macOS)")
	flags.StringSlice("ignore", nil, "glob patterns to leave unwatched (repeatable)")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.String("log-file", "", "write logs to this file")
	flags.Int("workers", 8, "parallel workers for the initial scan")
	flags.Bool("show-hidden", true, "show dotfiles in the interactive view")

	rootCmd.AddCommand(watchCmd, treeCmd, versionCmd)
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// loadConfig resolves settings for a command invocation. A positional path
// overrides the configured root.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	v := config.New(cfgFile)
	if err := bindFlags(v, cmd); err != nil {
		return config.Config{}, err
	}
	if err := config.ReadFile(v); err != nil {
		return config.Config{}, err
	}
	if len(args) > 0 {
		v.Set(config.KeyRoot, args[0])
	}

	cfg, err := config.Load(v)
	if err != nil {
		return cfg, err
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return cfg, err
	}
	logging.Debug.WithField("config", v.ConfigFileUsed()).Debug("configuration loaded")
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.InheritedFlags().Lookup(name)
		}
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// newController builds the controller for a resolved configuration
func newController(cfg config.Config) (*core.Controller, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", cfg.Root)
	}

	matcher, err := ignore.Compile(cfg.Ignore)
	if err != nil {
		return nil, err
	}
	return core.NewController(core.Options{
		Root:    cfg.Root,
		Backend: cfg.Backend,
		Ignore:  matcher,
		Workers: cfg.Workers,
	})
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	p := tea.NewProgram(
		ui.NewApp(ctrl, cfg.ShowHidden),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	return err
}
