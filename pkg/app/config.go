package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/lk2023060901/arise/pkg/config"
	"github.com/spf13/pflag"
)

// EnvPrefix 环境变量前缀，ARISE_LOG_LEVEL 对应 log.level
const EnvPrefix = "ARISE"

var (
	configPath string
	envFile    string
)

// LoadConfig 加载配置到 target
// 优先级：环境变量 > 配置文件 > 默认值
// 配置文件路径：--config > ARISE_CONFIG > 可执行文件目录下的 config.yaml
func LoadConfig(target any, opts ...config.Option) error {
	execDir, err := GetExecDir()
	if err != nil {
		return fmt.Errorf("failed to get executable directory: %w", err)
	}

	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", filepath.Join(execDir, "config.yaml"), "path to config file")
	}
	if pflag.Lookup("env-file") == nil {
		pflag.StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before reading environment")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	// .env 不覆盖已存在的环境变量
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	path := configPath
	if !pflag.CommandLine.Changed("config") {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			path = env
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s", path)
	}
	configPath = path

	mgr := config.NewManager(append([]config.Option{config.WithEnvPrefix(EnvPrefix)}, opts...)...)
	if err := mgr.LoadFile(path); err != nil {
		return err
	}
	return mgr.Unmarshal(target)
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}
