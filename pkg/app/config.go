package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/xdooria-rates/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，XDOORIA_LOG_LEVEL 对应 log.level
const EnvPrefix = "XDOORIA"

var (
	configPath string
	logPath    string
)

// LoadConfig 集成 pkg/config 提供统一加载能力
// 严格遵守优先级：1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
// 返回的 Manager 可用于监听配置文件变化
func LoadConfig(target any, opts ...config.Option) (config.Manager, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable directory: %w", err)
	}

	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "app.log")

	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	}
	if pflag.Lookup("log.path") == nil {
		pflag.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	}

	if !pflag.Parsed() {
		pflag.Parse()
	}

	// 优先级：Flag 显式指定 > 环境变量 XDOORIA_CONFIG > 默认物理路径
	finalConfigPath := configPath
	if !pflag.CommandLine.Changed("config") {
		if envConfig := os.Getenv(EnvPrefix + "_CONFIG"); envConfig != "" {
			finalConfigPath = envConfig
		}
	}

	logOverride := ""
	if pflag.CommandLine.Changed("log.path") {
		logOverride = logPath
	}

	return LoadConfigFile(finalConfigPath, defaultLog, logOverride, target, opts...)
}

// LoadConfigFile 从指定文件加载配置并解析到 target
// defaultLog 为日志路径默认值，logOverride 非空时覆盖所有来源
func LoadConfigFile(path, defaultLog, logOverride string, target any, opts ...config.Option) (config.Manager, error) {
	// 配置文件必须存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigFileNotFound, path)
	}
	configPath = path

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// 最低优先级的默认值（会被配置文件和环境变量覆盖）
	v.SetDefault("log.output_path", defaultLog)
	v.SetDefault("log.enable_file", true)

	// 命令行显式使用了 --log.path 时覆盖所有来源
	if logOverride != "" {
		v.Set("log.output_path", logOverride)
	}

	mgr := config.NewManager(append([]config.Option{config.WithViper(v)}, opts...)...)

	if err := mgr.LoadFile(path); err != nil {
		return nil, err
	}

	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	// 自动创建日志目录
	logPath = v.GetString("log.output_path")
	if v.GetBool("log.enable_file") {
		logDir := filepath.Dir(logPath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			_ = os.MkdirAll(logDir, 0755)
		}
	}

	return mgr, nil
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

// GetLogPath 返回最终生效的日志路径
func GetLogPath() string {
	return logPath
}
