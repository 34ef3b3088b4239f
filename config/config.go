// Package config reads the service configuration from defaults, an optional
// procurement.yaml, a .env file and PROCUREMENT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PROCUREMENT"
	FileName  = "procurement"

	BackendMemory    = "memory"
	BackendSQL       = "sql"
	BackendPostgrest = "postgrest"

	FeedLocal = "local"
	FeedRedis = "redis"

	SessionFile  = "file"
	SessionRedis = "redis"
)

// DefaultAddr keeps the API on the local machine. The signed-in identity is
// shared by every caller of the process.
const DefaultAddr = "127.0.0.1:8080"

type Config struct {
	Server struct {
		Addr string
	}
	Backend struct {
		Kind string
	}
	Database struct {
		Driver string
		DSN    string
	}
	Postgrest struct {
		URL     string
		APIKey  string
		Timeout time.Duration
	}
	Feed struct {
		Kind string
	}
	Redis struct {
		Addr     string
		Username string
		Password string
		DB       int
		Prefix   string
	}
	Session struct {
		Kind string
		Dir  string
	}
	Log struct {
		Level      string
		Format     string
		File       string
		MaxSizeMB  int
		MaxBackups int
	}
	Tracing struct {
		Enabled bool
		Agent   string
	}
	Seed struct {
		Enabled  bool
		Requests bool
	}
}

// IsLoopback reports whether addr only accepts connections from the local machine.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("backend.kind", BackendMemory)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "procurement.db")
	v.SetDefault("postgrest.url", "")
	v.SetDefault("postgrest.apikey", "")
	v.SetDefault("postgrest.timeout", 10*time.Second)
	v.SetDefault("feed.kind", FeedLocal)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "procurement:changes:")
	v.SetDefault("session.kind", SessionFile)
	v.SetDefault("session.dir", ".procurement")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxsizemb", 100)
	v.SetDefault("log.maxbackups", 5)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.agent", "")
	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.requests", false)
}

// Load reads the configuration. file may be empty, then procurement.yaml is looked up
// in the working directory and is optional.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file loaded")
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendMemory, BackendSQL:
	case BackendPostgrest:
		if c.Postgrest.URL == "" {
			return errors.New("postgrest.url is required by the postgrest backend")
		}
	default:
		return fmt.Errorf("unknown backend.kind '%s'", c.Backend.Kind)
	}
	if c.Feed.Kind != FeedLocal && c.Feed.Kind != FeedRedis {
		return fmt.Errorf("unknown feed.kind '%s'", c.Feed.Kind)
	}
	if c.Session.Kind != SessionFile && c.Session.Kind != SessionRedis {
		return fmt.Errorf("unknown session.kind '%s'", c.Session.Kind)
	}
	return nil
}
