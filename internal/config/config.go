package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SKILLSWAP"

type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	JWT      JWT
	Logger   LoggerMode
	Realtime Realtime
}

type Server struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Database struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	DSN    string
}

type Redis struct {
	URL string
}

type JWT struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
}

type LoggerMode struct {
	Development bool
	Level       string
}

type Realtime struct {
	// RecentLimit bounds the per-room event history kept in Redis.
	RecentLimit int
}

// LoadEnv loads a dotenv file into the process environment. A missing
// file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads a YAML config file. Any key can be overridden through
// SKILLSWAP_<SECTION>_<KEY> environment variables.
func LoadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	v.SetConfigName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if ext != "" {
		v.SetConfigType(ext)
	} else {
		v.SetConfigType("yaml")
	}
	v.AddConfigPath(filepath.Dir(path))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	err := v.Unmarshal(&c)
	if err != nil {
		slog.Error("Unable to unmarshal config", "err", err)
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is LoadEnv, LoadConfig and ParseConfig in sequence.
func Load(envFile, configPath string) (*Config, error) {
	if err := LoadEnv(envFile); err != nil {
		return nil, err
	}
	v, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return ParseConfig(v)
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret cannot be empty")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt token TTLs must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn cannot be empty")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url cannot be empty")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 15*time.Second)
	v.SetDefault("server.idletimeout", 60*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:skillswap.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.accessttl", 24*time.Hour)
	v.SetDefault("jwt.refreshttl", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "skillswap")
	v.SetDefault("jwt.audience", "skillswap.users")

	v.SetDefault("logger.development", true)
	v.SetDefault("logger.level", "info")

	v.SetDefault("realtime.recentlimit", 50)
}
