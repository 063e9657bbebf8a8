package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// exampleFile 生成示例配置文件的结构
// 字段顺序与 Config 保持一致，便于对照
type exampleFile struct {
	Server struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		Mode         string `yaml:"mode"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"database"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		TokenExpiry   string `yaml:"token_expiry"`
		RefreshExpiry string `yaml:"refresh_expiry"`
	} `yaml:"auth"`
	Audit struct {
		RetentionDays int  `yaml:"retention_days"`
		DailyCleanup  bool `yaml:"daily_cleanup"`
	} `yaml:"audit"`
}

// WriteExample 在指定路径写出带默认值的示例配置
// 目标文件已存在时不覆盖
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	var example exampleFile
	example.Server.Host = "0.0.0.0"
	example.Server.Port = 8080
	example.Server.Mode = "debug"
	example.Server.ReadTimeout = "30s"
	example.Server.WriteTimeout = "30s"

	example.Database.Driver = "postgres"
	example.Database.Host = "localhost"
	example.Database.Port = 5432
	example.Database.Database = "rbac_platform"
	example.Database.Username = "postgres"
	example.Database.Password = ""
	example.Database.SSLMode = "disable"

	example.Redis.Enabled = false
	example.Redis.Host = "localhost"
	example.Redis.Port = 6379
	example.Redis.DB = 0

	example.Auth.JWTSecret = "dev-only-secret-change-me-in-production!!"
	example.Auth.TokenExpiry = "30m"
	example.Auth.RefreshExpiry = "168h"

	example.Audit.RetentionDays = 90
	example.Audit.DailyCleanup = true

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
