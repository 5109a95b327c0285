package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DBConfig 数据库配置. URL wins over the discrete fields when set.
type DBConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`

	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// MQConfig 消息队列配置. An empty URL disables event publishing.
type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// RedisConfig Redis配置. An empty Addr disables the batch guard.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LLMConfig holds the generative model settings.
type LLMConfig struct {
	APIKey           string        `yaml:"api_key"`
	Model            string        `yaml:"model"`
	FailureThreshold int           `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// CORSConfig lists origins allowed in addition to localhost and *.vercel.app.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BatchConfig controls the pause between LLM-backed items of a batch.
// Rate > 0 switches from a fixed delay to a token bucket.
type BatchConfig struct {
	Delay   time.Duration `yaml:"delay"`
	Rate    float64       `yaml:"rate"`
	Burst   int           `yaml:"burst"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Development bool `yaml:"development"`
}

// Config is the full service configuration.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	MQ     MQConfig     `yaml:"mq"`
	Redis  RedisConfig  `yaml:"redis"`
	Server ServerConfig `yaml:"server"`
	LLM    LLMConfig    `yaml:"llm"`
	CORS   CORSConfig   `yaml:"cors"`
	Batch  BatchConfig  `yaml:"batch"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns the configuration used when no file overrides a field.
func Default() Config {
	return Config{
		DB: DBConfig{
			Host:               "localhost",
			Port:               5432,
			User:               "postgres",
			Name:               "commandmail",
			MaxConns:           10,
			MinConns:           2,
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		MQ: MQConfig{Exchange: "commandmail.events"},
		Server: ServerConfig{
			Port:            "5000",
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Model:            "gemini-2.5-flash",
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Batch: BatchConfig{
			Delay:   time.Second,
			Burst:   1,
			LockTTL: 10 * time.Minute,
		},
	}
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.URL = url
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置. PORT is what most PaaS hosts set.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideLLMFromEnv reads the model credentials.
func OverrideLLMFromEnv(cfg *LLMConfig) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.Model = model
	}
}

// OverrideCORSFromEnv appends a comma separated origin list.
func OverrideCORSFromEnv(cfg *CORSConfig) {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		return
	}
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}
}

// OverrideFromEnv applies every Override*FromEnv helper.
func OverrideFromEnv(cfg *Config) {
	OverrideDBFromEnv(&cfg.DB)
	OverrideMQFromEnv(&cfg.MQ)
	OverrideRedisFromEnv(&cfg.Redis)
	OverrideServerFromEnv(&cfg.Server)
	OverrideLLMFromEnv(&cfg.LLM)
	OverrideCORSFromEnv(&cfg.CORS)
}

// Addr returns the listen address for gin/http.Server.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}
