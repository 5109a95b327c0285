package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration in layers:
//  1. Default()
//  2. path (config.yaml), skipped when missing
//  3. <dir>/<name>.<env>.yaml when env is set and the file exists
//  4. <dir>/secrets.env exported into the process environment (non-empty vars win)
//  5. Override*FromEnv
func Load(path, env string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = "config.yaml"
	}
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if env != "" && env != "base" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		envFile := filepath.Join(dir, fmt.Sprintf("%s.%s.yaml", base, env))
		if err := decodeFile(envFile, &cfg); err != nil {
			return nil, err
		}
	}

	secrets, err := loadEnvFile(filepath.Join(dir, "secrets.env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets.env: %w", err)
	}
	for key, value := range secrets {
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	OverrideFromEnv(&cfg)
	return &cfg, nil
}

// decodeFile overlays a YAML file onto cfg. Missing files are ignored.
func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// loadEnvFile 加载 .env 文件
func loadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		value = strings.Trim(value, `'`)
		env[strings.TrimSpace(key)] = value
	}
	return env, nil
}

// GetEnv 获取环境变量，如果未设置则返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv 获取配置环境（从环境变量 CONFIG_ENV，默认为空）
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "")
}
