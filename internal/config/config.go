// Package config resolves treewatch settings from flags, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "TREEWATCH"

// Keys
const (
	KeyRoot       = "root"
	KeyBackend    = "backend"
	KeyIgnore     = "ignore"
	KeyLogLevel   = "log.level"
	KeyLogFile    = "log.file"
	KeyWorkers    = "scan.workers"
	KeyShowHidden = "ui.show-hidden"
)

// Backends
const (
	BackendFSNotify = "fsnotify"
	BackendFSEvents = "fsevents"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds resolved settings
type Config struct {
	Root       string
	Backend    string
	Ignore     []string
	LogLevel   string
	LogFile    string
	Workers    int
	ShowHidden bool
}

// New returns a viper instance with defaults, environment binding and the
// config file search path set up. cfgFile overrides the search path.
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyBackend, BackendFSNotify)
	v.SetDefault(KeyIgnore, []string{".git", "node_modules"})
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyWorkers, 8)
	v.SetDefault(KeyShowHidden, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "treewatch"))
		}
	}
	return v
}

// ReadFile reads the config file if one exists. A missing file in the
// default search path is not an error.
func ReadFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load resolves and validates a Config
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Root:       v.GetString(KeyRoot),
		Backend:    strings.ToLower(v.GetString(KeyBackend)),
		Ignore:     v.GetStringSlice(KeyIgnore),
		LogLevel:   v.GetString(KeyLogLevel),
		LogFile:    v.GetString(KeyLogFile),
		Workers:    v.GetInt(KeyWorkers),
		ShowHidden: v.GetBool(KeyShowHidden),
	}

	switch cfg.Backend {
	case BackendFSNotify, BackendFSEvents:
	default:
		return cfg, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("%w: scan.workers must be positive, got %d", ErrInvalidConfig, cfg.Workers)
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return cfg, fmt.Errorf("resolve root: %w", err)
	}
	cfg.Root = root
	return cfg, nil
}
