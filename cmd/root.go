package cmd

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cburschka/lyx-sub006/internal/cache"
	lconfig "github.com/cburschka/lyx-sub006/internal/config"
	"github.com/cburschka/lyx-sub006/internal/converter"
	"github.com/cburschka/lyx-sub006/internal/engine"
	"github.com/cburschka/lyx-sub006/internal/format"
	"github.com/cburschka/lyx-sub006/internal/mover"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	verbose    bool
	supportDir string
	version    = "0.1.0" // Version is set via ldflags during build
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "lyxconv",
	Version: version,
	Short:   "lyxconv - document format conversion engine",
	Long: `lyxconv drives documents through a graph of configured converters,
the way LyX resolves \format and \converter directives to get from a
source format to a target format, via the shortest chain of tools,
with results cached on disk.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command execution failed")
		os.Exit(1)
	}
}

func init() {
	home, _ := os.UserHomeDir()
	defaultSupportDir := filepath.Join(home, ".lyxconv")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lyxconv/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().StringVar(&supportDir, "support-dir", defaultSupportDir, "support directory substituted for the $$s token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level=debug)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// setupLogging configures zerolog based on flags and config.
func setupLogging() error {
	level := logLevel
	if verbose {
		level = "debug"
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)

	if logFormat == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Debug().Str("level", level).Str("format", logFormat).Msg("logging initialized")
	return nil
}

// loadEngine reads configuration and assembles a ready-to-use Engine, shared
// by every subcommand that performs an actual conversion or cache operation.
func loadEngine() (*engine.Engine, error) {
	cfg, err := lconfig.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	formats, movers, convs, err := lconfig.Build(cfg, fs, supportDir)
	if err != nil {
		return nil, err
	}

	cacheDir := expandHome(cfg.Cache.Dir)
	c := cache.New(fs, movers, cacheDir, cfg.Cache.MaxAge, cfg.Cache.Enabled, format.Sniff)
	if cfg.Cache.Enabled {
		if err := c.Init(); err != nil {
			return nil, err
		}
	}

	tempDir, err := os.MkdirTemp("", "lyxconv-")
	if err != nil {
		return nil, err
	}

	e := engine.New(formats, convs, movers, c, supportDir, tempDir)
	e.DefaultCommand = cfg.DefaultConverter.Command
	return e, nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// mustRegistries is a lighter path for commands (formats, path) that only
// need the format/converter registries, not the full engine and its cache.
func mustRegistries() (*format.Registry, *converter.Registry, error) {
	cfg, err := lconfig.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	formats, _, convs, err := lconfig.Build(cfg, afero.NewOsFs(), supportDir)
	if err != nil {
		return nil, nil, err
	}
	return formats, convs, nil
}

// engineMover exists so cache subcommands can reach the mover registry
// without paying for a scratch temp directory they never use.
func engineMover() (*mover.Registry, *cache.Cache, error) {
	cfg, err := lconfig.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	fs := afero.NewOsFs()
	_, movers, _, err := lconfig.Build(cfg, fs, supportDir)
	if err != nil {
		return nil, nil, err
	}
	cacheDir := expandHome(cfg.Cache.Dir)
	c := cache.New(fs, movers, cacheDir, cfg.Cache.MaxAge, cfg.Cache.Enabled, format.Sniff)
	if err := c.Init(); err != nil {
		return nil, nil, err
	}
	return movers, c, nil
}
