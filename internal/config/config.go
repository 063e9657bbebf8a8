package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	Mode         string        `mapstructure:"mode" validate:"required,oneof=debug release test"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"required"`
}

// DatabaseConfig 数据库配置
// driver 为 sqlite 时仅使用 database 字段作为文件路径（:memory: 用于测试）
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database" validate:"required"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// RedisConfig Redis配置（可选，用于系统设置持久化）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenExpiry   time.Duration `mapstructure:"token_expiry" validate:"required"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry" validate:"required"`
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	RetentionDays int  `mapstructure:"retention_days" validate:"min=0"`
	DailyCleanup  bool `mapstructure:"daily_cleanup"`
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// SetConfig 设置全局配置
func SetConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig = cfg
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Load 加载配置文件
func Load() (*Config, error) {
	return LoadWithPath("./configs")
}

// LoadWithPath 从指定路径加载配置文件
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	setDefaults(v)

	// 环境变量支持：RBAC_SERVER_PORT 等
	v.SetEnvPrefix("RBAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// 配置文件不存在，使用默认值和环境变量
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// JWT密钥允许通过独立环境变量覆盖
	if secret := os.Getenv("RBAC_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if config.Server.Mode == "release" {
		if err := validateProductionConfig(&config); err != nil {
			return nil, fmt.Errorf("production config validation failed: %w", err)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "rbac_platform")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "dev-only-secret-change-me-in-production!!")
	v.SetDefault("auth.token_expiry", "30m")
	v.SetDefault("auth.refresh_expiry", "168h")

	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.daily_cleanup", true)
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	validate := validator.New()
	return validate.Struct(config)
}

// validateProductionConfig 生产环境额外校验
func validateProductionConfig(config *Config) error {
	if strings.HasPrefix(config.Auth.JWTSecret, "dev-only-") {
		return fmt.Errorf("default jwt_secret must not be used in release mode")
	}
	if config.Database.Driver == "sqlite" {
		return fmt.Errorf("sqlite driver is not supported in release mode")
	}
	return nil
}
