// internal/config/config_test.go
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/domlens/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, 1280.0, cfg.Page.ViewportWidth)
	assert.Equal(t, 720.0, cfg.Page.ViewportHeight)

	assert.True(t, cfg.Analyzer.DoHighlightElements)
	assert.Equal(t, -1, cfg.Analyzer.FocusHighlightIndex)
	assert.Equal(t, 5, cfg.Analyzer.MaxIframeDepth)
	assert.Equal(t, 100, cfg.Analyzer.MaxIframes)
	assert.True(t, cfg.Analyzer.IncludeCrossOriginIframes)
	assert.False(t, cfg.Analyzer.CompactMode)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logger:
  level: debug
  format: json
page:
  viewport_width: 1920
  viewport_height: 1080
analyzer:
  viewport_expansion: 200
  compact_mode: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 1920.0, cfg.Page.ViewportWidth)
	assert.Equal(t, 200, cfg.Analyzer.ViewportExpansion)
	assert.True(t, cfg.Analyzer.CompactMode)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.Analyzer.MaxIframeDepth)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, err := config.Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
}

func TestLoadMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger: [unclosed"), 0o644))

	_, err := config.Load(viper.New(), path)
	assert.Error(t, err)
}
