// Package config defines the configuration shape consumed by the format,
// mover, and converter registries, and the viper-backed loader that reads
// it from YAML. How the configuration is authored (by hand, by a migration
// from the legacy LyX \format/\converter grammar) is a host concern.
package config

import "time"

// Config is the full, populated configuration the engine consumes.
type Config struct {
	Formats    []FormatEntry    `mapstructure:"formats"`
	Converters []ConverterEntry `mapstructure:"converters"`
	Copiers    []CopierEntry    `mapstructure:"copiers"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// DefaultConverter is the generic fallback script run when try_default
	// is set and no configured path exists between two formats.
	DefaultConverter DefaultConverterConfig `mapstructure:"default_converter"`
}

// FormatEntry mirrors one \format directive: name, extensions, pretty name,
// shortcut, viewer/editor commands, mime type, and flag words.
type FormatEntry struct {
	Name       string   `mapstructure:"name"`
	Extensions []string `mapstructure:"extensions"`
	Pretty     string   `mapstructure:"pretty"`
	Shortcut   string   `mapstructure:"shortcut"`
	Viewer     string   `mapstructure:"viewer"`
	Editor     string   `mapstructure:"editor"`
	MIME       string   `mapstructure:"mime"`
	Flags      []string `mapstructure:"flags"` // document, vector, menu=export, zipped=native
}

// ConverterEntry mirrors one \converter directive.
type ConverterEntry struct {
	From    string `mapstructure:"from"`
	To      string `mapstructure:"to"`
	Command string `mapstructure:"command"`
	Flags   string `mapstructure:"flags"` // comma-separated key=value/bare words
}

// CopierEntry mirrors one \copier directive, registering a specialised mover.
type CopierEntry struct {
	Format  string `mapstructure:"format"`
	Command string `mapstructure:"command"`
}

// CacheConfig controls the conversion cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// LoggingConfig holds the logging section of the configuration. The lyxconv
// CLI does not apply it: zerolog's level and output format come from the
// --log-level, --log-format and --verbose flags.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConverterConfig is the generic, script-based fallback LyX itself
// falls back to when the converter graph has no path and try_default is
// set (scripts/convertDefault.py in the original): one command template
// parameterized by from/to format names and the source/dest paths, rather
// than a converter entry per format pair. Command is substituted with the
// same $$-token set as a converter's Command, plus $$f/$$t for the from/to
// format names. Empty disables the generic fallback; the handful of
// built-in native fallbacks in internal/defaultconv still apply regardless.
type DefaultConverterConfig struct {
	Command string `mapstructure:"command"`
}
