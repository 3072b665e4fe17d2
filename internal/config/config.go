// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/domlens/internal/browser/analyzer"
)

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	Color       bool   `mapstructure:"color" yaml:"color"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`

	// File sink with rotation; empty LogFile disables it.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// PageConfig describes the synthetic window the document is laid out in.
type PageConfig struct {
	ViewportWidth  float64 `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight float64 `mapstructure:"viewport_height" yaml:"viewport_height"`
	ScrollX        float64 `mapstructure:"scroll_x" yaml:"scroll_x"`
	ScrollY        float64 `mapstructure:"scroll_y" yaml:"scroll_y"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
}

// Config is the full application configuration.
type Config struct {
	Logger   LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Page     PageConfig       `mapstructure:"page" yaml:"page"`
	Analyzer analyzer.Options `mapstructure:"analyzer" yaml:"analyzer"`
}

// SetDefaults registers every default on a viper instance so flag and env
// overrides layer on top.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.color", true)
	v.SetDefault("logger.service_name", "domlens")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("page.viewport_width", 1280)
	v.SetDefault("page.viewport_height", 720)

	opts := analyzer.DefaultOptions()
	v.SetDefault("analyzer.do_highlight_elements", opts.DoHighlightElements)
	v.SetDefault("analyzer.focus_highlight_index", opts.FocusHighlightIndex)
	v.SetDefault("analyzer.viewport_expansion", opts.ViewportExpansion)
	v.SetDefault("analyzer.debug_mode", opts.DebugMode)
	v.SetDefault("analyzer.max_iframe_depth", opts.MaxIframeDepth)
	v.SetDefault("analyzer.max_iframes", opts.MaxIframes)
	v.SetDefault("analyzer.include_cross_origin_iframes", opts.IncludeCrossOriginIframes)
	v.SetDefault("analyzer.compact_mode", opts.CompactMode)
}

// Load reads the optional config file and environment into a Config.
// A missing file is not an error; a malformed one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("DOMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
