package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nil-go/konf"
	"github.com/nil-go/konf/provider/env"
	"github.com/nil-go/konf/provider/file"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is assembled from an optional YAML file and then environment
// variables. Env names map onto nested keys by underscore, so
// DATABASE_DSN sets database.dsn and PORT sets port.
type Config struct {
	Port     string `konf:"port"`
	Database struct {
		DSN string `konf:"dsn"`
	} `konf:"database"`
	JWT struct {
		Secret  string `konf:"secret"`
		Access  string `konf:"access"`
		Refresh string `konf:"refresh"`
	} `konf:"jwt"`
	Cors struct {
		Origins string `konf:"origins"`
	} `konf:"cors"`
	Gin struct {
		Mode string `konf:"mode"`
	} `konf:"gin"`
	Log struct {
		Level string `konf:"level"`
	} `konf:"log"`
	Request struct {
		Timeout string `konf:"timeout"`
	} `konf:"request"`
	Kafka struct {
		Brokers string `konf:"brokers"`
		Topic   string `konf:"topic"`
	} `konf:"kafka"`
	Admin struct {
		Name     string `konf:"name"`
		Email    string `konf:"email"`
		Password string `konf:"password"`
	} `konf:"admin"`
}

const (
	defaultPort       = "5000"
	defaultDSN        = "host=localhost user=postgres password=postgres dbname=tablebook port=5432 sslmode=disable"
	defaultSecret     = "tablebook-dev-secret"
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultTimeout    = 10 * time.Second
	defaultTopic      = "reservation-events"
)

func Load(path string) (Config, error) {
	var cfg Config

	k := konf.New()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.New(path, file.WithUnmarshal(yaml.Unmarshal))); err != nil {
				return Config{}, errors.Wrapf(err, "load config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "stat config file %s", path)
		}
	}
	if err := k.Load(env.New()); err != nil {
		return Config{}, errors.Wrap(err, "load environment")
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.Database.DSN == "" {
		c.Database.DSN = defaultDSN
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = defaultSecret
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = defaultTopic
	}
	if c.Admin.Name == "" {
		c.Admin.Name = "Administrator"
	}
}

func (c *Config) validate() error {
	for name, v := range map[string]string{
		"jwt.access":      c.JWT.Access,
		"jwt.refresh":     c.JWT.Refresh,
		"request.timeout": c.Request.Timeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return errors.Wrapf(err, "invalid duration for %s", name)
		}
	}
	return nil
}

func (c Config) AccessTTL() time.Duration {
	return durationOr(c.JWT.Access, defaultAccessTTL)
}

func (c Config) RefreshTTL() time.Duration {
	return durationOr(c.JWT.Refresh, defaultRefreshTTL)
}

func (c Config) RequestTimeout() time.Duration {
	return durationOr(c.Request.Timeout, defaultTimeout)
}

// AllowedOrigins returns the CORS allow list. Empty means any origin, which
// is what the mobile client needs.
func (c Config) AllowedOrigins() []string {
	return splitList(c.Cors.Origins)
}

func (c Config) KafkaBrokers() []string {
	return splitList(c.Kafka.Brokers)
}

func (c Config) Release() bool {
	return strings.EqualFold(c.Gin.Mode, "release")
}

func (c Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func durationOr(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
