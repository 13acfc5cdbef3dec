package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/labbrowse/internal/pipeline"
	"github.com/leapstack-labs/labbrowse/internal/refresh"
	"github.com/leapstack-labs/labbrowse/internal/render"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labbrowse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data-root", "", "")
	flags.String("refresh", "", "")
	flags.String("op", "", "")
	flags.Bool("grid", true, "")
	flags.String("search", "", "not a config flag")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataRoot, cfg.DataRoot)
	assert.Equal(t, render.ModeText, cfg.OutputFormat)
	assert.Equal(t, refresh.Off, cfg.Refresh)
	assert.Equal(t, pipeline.DefaultOptions(), cfg.PipelineOptions())
	assert.False(t, cfg.ScanOptions().OnlyComplete)
	assert.True(t, cfg.ScanOptions().IncludeTrash)
	assert.True(t, cfg.Watch)
	assert.Equal(t, DefaultListSize, cfg.ListSize)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, `data_root: data
history_path: /tmp/h.db
refresh: 1 min
grid_on_load: false
preprocess:
  operation: none
  dim: shot
scan:
  only_complete: true
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data"), cfg.DataRoot, "relative paths resolve against the config file")
	assert.Equal(t, "/tmp/h.db", cfg.HistoryPath)
	assert.Equal(t, refresh.Every1m, cfg.Refresh)
	assert.Equal(t, pipeline.Options{Operation: pipeline.OpNone, Dimension: "shot"}, cfg.PipelineOptions())
	assert.True(t, cfg.Scan.OnlyComplete)
	assert.True(t, cfg.Scan.IncludeTrash, "unset keys keep their default")
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		flagVal string
		want    refresh.Interval
	}{
		{name: "file only", want: refresh.Every5s},
		{name: "env over file", env: "10s", want: refresh.Every10s},
		{name: "flag over env", env: "10s", flagVal: "2s", want: refresh.Every2s},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			path := writeConfig(t, "refresh: 5s\n")
			if tt.env != "" {
				t.Setenv("LABBROWSE_REFRESH", tt.env)
			}
			flags := testFlags()
			if tt.flagVal != "" {
				require.NoError(t, flags.Set("refresh", tt.flagVal))
			}

			cfg, err := LoadConfig(path, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Refresh)
		})
	}
}

func TestLoadConfig_UnsetFlagUsesEnv(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("LABBROWSE_PREPROCESS_OPERATION", "none")
	t.Setenv("LABBROWSE_SCAN_INCLUDE_TRASH", "false")
	t.Setenv("LABBROWSE_DATA_ROOT", "/srv/data")

	flags := testFlags()
	require.NoError(t, flags.Set("search", "rabi"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, pipeline.OpNone, cfg.Preprocess.Operation)
	assert.False(t, cfg.Scan.IncludeTrash)
	assert.Equal(t, "/srv/data", cfg.DataRoot)
	assert.True(t, cfg.GridOnLoad)
}

func TestLoadConfig_FlagBeatsFilePath(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "data_root: from_file\n")
	flags := testFlags()
	require.NoError(t, flags.Set("data-root", "from_flag"))
	require.NoError(t, flags.Set("grid", "false"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "from_flag", cfg.DataRoot, "flag paths are not rebased on the config file")
	assert.False(t, cfg.GridOnLoad)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"refresh":   "refresh: 3s\n",
		"operation": "preprocess:\n  operation: median\n",
		"output":    "output: xml\n",
		"log level": "log_level: loud\n",
		"list size": "list_size: -1\n",
		"data root": "data_root: \"\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, content), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidateDataRoot(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{DataRoot: dir}
	assert.NoError(t, cfg.ValidateDataRoot())

	cfg.DataRoot = filepath.Join(dir, "missing")
	assert.ErrorContains(t, cfg.ValidateDataRoot(), "does not exist")

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	cfg.DataRoot = file
	assert.ErrorContains(t, cfg.ValidateDataRoot(), "not a directory")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("info", &buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "k=v")

	_, err = NewLogger("loud", &buf)
	assert.Error(t, err)

	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.NotNil(t, GetLogger(context.Background()))
}

func TestDefaultMatchesLoadedDefaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	ctx := context.WithValue(context.Background(), ConfigKey(), cfg)
	assert.Same(t, cfg, GetConfig(ctx))
	assert.Equal(t, Default(), GetConfig(context.Background()))
}
