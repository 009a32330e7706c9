package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Logger   Logger                    `yaml:"logger"`
	Storage  Storage                   `yaml:"storage"`
	Auth     Auth                      `yaml:"auth"`
	Listen   string                    `yaml:"listen"`
	Admin    Admin                     `yaml:"admin"`
	CORS     CORS                      `yaml:"cors"`
	Catalog  Catalog                   `yaml:"catalog"`
	Sync     Sync                      `yaml:"sync"`
	Redis    Redis                     `yaml:"redis"`
	Contexts map[string][]ContextField `yaml:"contexts"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Storage struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver   string `yaml:"driver"`
	Database string `yaml:"database"`
}

type Auth struct {
	JWT JWT `yaml:"jwt"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Catalog points at the YAML contest catalogue.
type Catalog struct {
	Root string `yaml:"root"`
}

type Sync struct {
	ProviderTimeoutSeconds int `yaml:"provider_timeout_seconds"`
	// Lock is "local" (default) or "redis".
	Lock      string     `yaml:"lock"`
	Platforms []Platform `yaml:"platforms"`
}

// Platform registers one external scoring provider.
type Platform struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	// Refresh is set only for platforms that scrape through a shared
	// session that has to be exchanged before use.
	Refresh  []string `yaml:"refresh"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

type Redis struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	LockTTLSecond int    `yaml:"lock_ttl_seconds"`
}

type ContextField struct {
	Key     string   `yaml:"key" json:"key"`
	Options []string `yaml:"options" json:"options"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil {
		zap.S().Debug("no .env file found, relying on environment variables")
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnv lets secrets live outside the YAML file.
func (cfg *Config) applyEnv() {
	cfg.Auth.JWT.Secret = getEnv("OITRACK_JWT_SECRET", cfg.Auth.JWT.Secret)
	cfg.Storage.Database = getEnv("OITRACK_DATABASE", cfg.Storage.Database)
	cfg.Redis.Addr = getEnv("OITRACK_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("OITRACK_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("OITRACK_REDIS_DB", cfg.Redis.DB)
	for i := range cfg.Sync.Platforms {
		p := &cfg.Sync.Platforms[i]
		key := envKey(p.Name)
		p.Username = getEnv("OITRACK_"+key+"_USERNAME", p.Username)
		p.Password = getEnv("OITRACK_"+key+"_PASSWORD", p.Password)
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Auth.JWT.ExpireHours <= 0 {
		cfg.Auth.JWT.ExpireHours = 72
	}
	if cfg.Sync.ProviderTimeoutSeconds <= 0 {
		cfg.Sync.ProviderTimeoutSeconds = 60
	}
	if cfg.Sync.Lock == "" {
		cfg.Sync.Lock = "local"
	}
	if cfg.Redis.LockTTLSecond <= 0 {
		cfg.Redis.LockTTLSecond = 120
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
}

// envKey turns a platform name such as "qoj.ac" into "QOJ_AC".
func envKey(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			out = append(out, ch-'a'+'A')
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
