package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server     ServerConfig     `toml:"server"`
	Data       DataConfig       `toml:"data"`
	Allocation AllocationConfig `toml:"allocation"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port" env:"MENTIONSCOPE_PORT"`
	DevMode bool `toml:"dev_mode" env:"MENTIONSCOPE_DEV_MODE"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir" env:"MENTIONSCOPE_DATA_DIR"`
	DBName  string `toml:"db_name" env:"MENTIONSCOPE_DB_NAME"`
}

// AllocationConfig 配额分配配置
type AllocationConfig struct {
	Total           int `toml:"total" env:"MENTIONSCOPE_ALLOCATION_TOTAL"`
	AutosaveDelayMS int `toml:"autosave_delay_ms" env:"MENTIONSCOPE_AUTOSAVE_DELAY_MS"` // <=0 关闭自动保存
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level" env:"MENTIONSCOPE_LOG_LEVEL"`
	Format string `toml:"format" env:"MENTIONSCOPE_LOG_FORMAT"` // json | console
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
			DBName:  "mentionscope.db",
		},
		Allocation: AllocationConfig{
			Total:           100,
			AutosaveDelayMS: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Allocation.Total <= 0 {
		return fmt.Errorf("allocation total must be positive, got %d", c.Allocation.Total)
	}
	if c.Data.DBName == "" {
		return fmt.Errorf("data db_name is required")
	}
	return nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadConfigFrom(DefaultConfigPath())
}

// LoadConfigFrom 从指定路径加载配置，文件不存在时使用默认配置；
// 之后再应用环境变量覆盖
func LoadConfigFrom(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, info, err
	}
	if err == nil {
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	// 环境变量覆盖（用于 E2E / 容器运行）
	if _, ok := os.LookupEnv("MENTIONSCOPE_PORT"); ok {
		info.PortSpecified = true
	}
	if err := env.Parse(config); err != nil {
		return nil, info, fmt.Errorf("parse env: %w", err)
	}

	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// ApplyPortFlag 命令行端口仅在配置未显式指定 port 时生效，生效后写回配置文件
func ApplyPortFlag(config *AppConfig, info LoadConfigInfo, port int) (bool, error) {
	if port <= 0 || info.PortSpecified {
		return false, nil
	}
	config.Server.Port = port
	if info.Path == "" {
		return true, nil
	}
	return true, SaveConfigTo(info.Path, config)
}

// SaveConfigTo 保存配置到指定路径
func SaveConfigTo(configPath string, config *AppConfig) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// ResolveDataDir 解析数据目录：绝对路径原样使用，相对路径基于可执行文件目录
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// EnsureDataDir 确保数据目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// GetDBPath 获取数据库文件路径
func GetDBPath(config *AppConfig) string {
	return filepath.Join(ResolveDataDir(config), config.Data.DBName)
}
