package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, info, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	require.False(t, info.PortSpecified)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFrom_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 8081

[allocation]
total = 1000
autosave_delay_ms = 0

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, info, err := LoadConfigFrom(path)
	require.NoError(t, err)
	require.True(t, info.PortSpecified)
	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, 1000, cfg.Allocation.Total)
	require.Equal(t, 0, cfg.Allocation.AutosaveDelayMS)
	require.Equal(t, "debug", cfg.Log.Level)
	// 未出现的字段保留默认值
	require.Equal(t, "mentionscope.db", cfg.Data.DBName)
}

func TestLoadConfigFrom_EnvOverrides(t *testing.T) {
	t.Setenv("MENTIONSCOPE_PORT", "9999")
	t.Setenv("MENTIONSCOPE_LOG_FORMAT", "json")

	cfg, info, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	require.True(t, info.PortSpecified)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigFrom_InvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0644))

	_, _, err := LoadConfigFrom(path)
	require.Error(t, err)
}

func TestSaveConfigTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Allocation.Total = 50
	require.NoError(t, SaveConfigTo(path, cfg))

	loaded, _, err := LoadConfigFrom(path)
	require.NoError(t, err)
	require.Equal(t, 50, loaded.Allocation.Total)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Allocation.Total = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Port = 70000
	require.Error(t, cfg.Validate())
}

func TestResolveDataDir_Absolute(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Data.DataDir = dir
	require.Equal(t, dir, ResolveDataDir(cfg))
	require.Equal(t, filepath.Join(dir, "mentionscope.db"), GetDBPath(cfg))

	got, err := EnsureDataDir(cfg)
	require.NoError(t, err)
	require.DirExists(t, got)
}

func TestApplyPortFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, info, err := LoadConfigFrom(path)
	require.NoError(t, err)
	applied, err := ApplyPortFlag(cfg, info, 8088)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 8088, cfg.Server.Port)

	// 写回后配置文件显式指定了端口，之后的命令行端口不再生效
	cfg, info, err = LoadConfigFrom(path)
	require.NoError(t, err)
	require.True(t, info.PortSpecified)
	require.Equal(t, 8088, cfg.Server.Port)

	applied, err = ApplyPortFlag(cfg, info, 9000)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, 8088, cfg.Server.Port)

	applied, err = ApplyPortFlag(DefaultConfig(), LoadConfigInfo{}, 0)
	require.NoError(t, err)
	require.False(t, applied)
}
