package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/cburschka/lyx-sub006/internal/converter"
	"github.com/cburschka/lyx-sub006/internal/format"
	"github.com/cburschka/lyx-sub006/internal/mover"
)

// Load reads config.yaml (general settings) and merges converters.yaml (the
// format/converter/copier directives) from the same directory, the way the
// original LyX installation splits lyxrc.defaults from the format/converter
// tables. cfgFile, if non-empty, is used verbatim as the first file; its
// directory is also searched for converters.yaml.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".lyxconv"))
		}
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LYXCONV")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		log.Debug().Msg("no config.yaml found, using defaults only")
	} else {
		log.Debug().Str("config", v.ConfigFileUsed()).Msg("using config file")
	}

	convertersFile := filepath.Join(filepath.Dir(v.ConfigFileUsed()), "converters.yaml")
	if _, err := os.Stat(convertersFile); err == nil {
		v.SetConfigFile(convertersFile)
		if err := v.MergeInConfig(); err != nil {
			log.Warn().Err(err).Str("file", convertersFile).Msg("failed to merge converters config")
		} else {
			log.Debug().Str("config", convertersFile).Msg("merged converters config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "~/.cache/lyxconv")
	v.SetDefault("cache.max_age", "720h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("default_converter.command", `$$s/scripts/convertDefault.py $$f:"$$i" $$t:"$$o"`)
}

// Build populates a format registry, a mover registry, and a converter
// registry from cfg, then computes the converter graph. fs backs the mover
// registry's file operations; supportDir is the directory specialised
// movers and converters resolve the $$s token against.
func Build(cfg *Config, fs afero.Fs, supportDir string) (*format.Registry, *mover.Registry, *converter.Registry, error) {
	formats := format.New()
	for _, fe := range cfg.Formats {
		flags := parseFormatFlags(fe.Flags)
		formats.Add(format.Format{
			Name:       fe.Name,
			Extensions: fe.Extensions,
			Pretty:     fe.Pretty,
			Shortcut:   fe.Shortcut,
			Viewer:     fe.Viewer,
			Editor:     fe.Editor,
			MIME:       fe.MIME,
			Flags:      flags,
		})
	}

	movers := mover.New(fs, supportDir)
	for _, ce := range cfg.Copiers {
		movers.Set(ce.Format, ce.Command)
	}

	convs := converter.New(formats)
	for _, ce := range cfg.Converters {
		convs.Add(converter.Converter{
			From:    ce.From,
			To:      ce.To,
			Command: ce.Command,
			Flags:   ce.Flags,
		})
	}
	convs.BuildGraph()

	return formats, movers, convs, nil
}

func parseFormatFlags(words []string) format.Flag {
	var flags format.Flag
	for _, w := range words {
		switch w {
		case "document":
			flags |= format.FlagDocument
		case "vector":
			flags |= format.FlagVector
		case "menu=export":
			flags |= format.FlagInExportMenu
		case "zipped=native":
			flags |= format.FlagZippedNative
		}
	}
	return flags
}
