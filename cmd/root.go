// Package cmd wires the command line interface around the configuration
// registries.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RMShur/model-organization/internal/log"
	"github.com/RMShur/model-organization/internal/organizer"
	"github.com/RMShur/model-organization/internal/store"
	"github.com/RMShur/model-organization/internal/tracing"
)

// Settings is the CLI configuration, populated from flags and the optional
// config file.
type Settings struct {
	LockTimeout         time.Duration  `mapstructure:"lock_timeout"`
	RetryDelay          time.Duration  `mapstructure:"retry_delay"`
	CacheTTL            time.Duration  `mapstructure:"cache_ttl"`
	AutoRefresh         bool           `mapstructure:"auto_refresh"`
	AutoRefreshDebounce time.Duration  `mapstructure:"auto_refresh_debounce"`
	Tracing             tracing.Config `mapstructure:"tracing"`
}

var (
	version  = "dev"
	cfgFile  string
	appName  string
	settings Settings
)

var rootCmd = &cobra.Command{
	Use:     "modelorg",
	Short:   "Registry of projects, experiments and global settings",
	Long: `modelorg keeps per-application configuration in ordered YAML files:
a projects index, per-project experiment records and a free-form globals
document. Files are guarded by inter-process locks and backed up on save.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion overrides the version string shown by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/modelorg/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&appName, "app-name", "modelorg",
		"application name; selects the configuration directory")
}

func initConfig() {
	viper.SetDefault("lock_timeout", 10*time.Second)
	viper.SetDefault("retry_delay", 50*time.Millisecond)
	viper.SetDefault("cache_ttl", time.Duration(0))
	viper.SetDefault("auto_refresh", true)
	viper.SetDefault("auto_refresh_debounce", time.Second)
	defaults := tracing.DefaultConfig()
	viper.SetDefault("tracing.enabled", defaults.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .modelorg/config.yaml (current directory)
		// 2. ~/.config/modelorg/config.yaml (user config)
		if _, err := os.Stat(".modelorg/config.yaml"); err == nil {
			viper.SetConfigFile(".modelorg/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "modelorg"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Missing config files are fine; everything has a default.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Warning: could not read config:", err)
		}
	}

	_ = viper.Unmarshal(&settings)
}

func storeOptions() []store.Option {
	opts := []store.Option{
		store.WithLockTimeout(settings.LockTimeout),
		store.WithRetryDelay(settings.RetryDelay),
	}
	if settings.CacheTTL > 0 {
		opts = append(opts, store.WithCache(settings.CacheTTL))
	}
	return opts
}

// openConfig sets up logging and tracing, then loads the configuration root
// for the selected application. The returned cleanup flushes spans, closes
// the registries and the log file.
func openConfig(ctx context.Context) (*organizer.Config, func(), error) {
	confDir, err := organizer.ConfigDir(appName)
	if err != nil {
		return nil, nil, err
	}

	_, logCleanup, err := log.Setup(confDir, strings.ToUpper(appName)+"_LOG_CFG")
	if err != nil {
		return nil, nil, err
	}

	provider, err := tracing.NewProvider(settings.Tracing)
	if err != nil {
		logCleanup()
		return nil, nil, err
	}

	cfg, err := organizer.New(ctx, appName, organizer.WithStore(store.New(storeOptions()...)))
	if err != nil {
		_ = provider.Shutdown(ctx)
		logCleanup()
		return nil, nil, err
	}

	cleanup := func() {
		cfg.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
		logCleanup()
	}
	return cfg, cleanup, nil
}
