package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RATEBOT"

type Telegram struct {
	Token          string `mapstructure:"token"`
	PollTimeoutSec int    `mapstructure:"poll_timeout_sec"`
	Debug          bool   `mapstructure:"debug"`
}

type Server struct {
	Enabled           bool   `mapstructure:"enabled"`
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

// Upstream configures one rate provider.
type Upstream struct {
	Endpoint              string `mapstructure:"endpoint"`
	TimeoutSec            int    `mapstructure:"timeout_sec"`
	Retries               int    `mapstructure:"retries"`
	RetryBackoffMs        int    `mapstructure:"retry_backoff_ms"`
	MaxRequestsPerMinute  int    `mapstructure:"max_requests_per_minute"`
	MinRequestIntervalSec int    `mapstructure:"min_request_interval_sec"`
	Burst                 int    `mapstructure:"burst"`
}

func (u Upstream) Timeout() time.Duration { return time.Duration(u.TimeoutSec) * time.Second }

func (u Upstream) RetryBackoff() time.Duration {
	return time.Duration(u.RetryBackoffMs) * time.Millisecond
}

func (u Upstream) MinRequestInterval() time.Duration {
	return time.Duration(u.MinRequestIntervalSec) * time.Second
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type Cache struct {
	// Backend is "memory" or "redis".
	Backend          string `mapstructure:"backend"`
	SweepIntervalSec int    `mapstructure:"sweep_interval_sec"`
	// WarmIntervalSec > 0 refreshes all providers in the background.
	WarmIntervalSec int   `mapstructure:"warm_interval_sec"`
	Redis           Redis `mapstructure:"redis"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Telegram   Telegram `mapstructure:"telegram"`
	Server     Server   `mapstructure:"server"`
	Monobank   Upstream `mapstructure:"monobank"`
	Privatbank Upstream `mapstructure:"privatbank"`
	Cache      Cache    `mapstructure:"cache"`
	Log        Log      `mapstructure:"log"`
}

func Default() Config {
	return Config{
		Telegram: Telegram{PollTimeoutSec: 60},
		Server:   Server{Enabled: false, Port: "8080", RequestTimeoutSec: 15},
		Monobank: Upstream{
			Endpoint:       "https://api.monobank.ua",
			TimeoutSec:     10,
			Retries:        1,
			RetryBackoffMs: 500,
		},
		Privatbank: Upstream{
			Endpoint:       "https://api.privatbank.ua",
			TimeoutSec:     10,
			Retries:        1,
			RetryBackoffMs: 500,
		},
		Cache: Cache{
			Backend:          "memory",
			SweepIntervalSec: 600,
			Redis:            Redis{Addr: "localhost:6379"},
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path (JSON or YAML). If path is empty,
// config.json or config.yaml in the working directory is used when present;
// a missing file yields defaults. Environment variables prefixed RATEBOT_
// override any field, e.g. RATEBOT_CACHE_BACKEND, and BOT_TOKEN sets the
// Telegram token. A .env file is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("telegram.token", envPrefix+"_TELEGRAM_TOKEN", "BOT_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr: required for redis backend"))
	}
	for name, u := range map[string]Upstream{"monobank": c.Monobank, "privatbank": c.Privatbank} {
		if u.Endpoint == "" {
			errs = append(errs, fmt.Errorf("%s.endpoint: required", name))
		}
		if u.TimeoutSec <= 0 {
			errs = append(errs, fmt.Errorf("%s.timeout_sec: must be positive", name))
		}
		if u.Retries < 0 {
			errs = append(errs, fmt.Errorf("%s.retries: must not be negative", name))
		}
	}
	if c.Server.Enabled && c.Server.Port == "" {
		errs = append(errs, errors.New("server.port: required when server is enabled"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("telegram.token", d.Telegram.Token)
	v.SetDefault("telegram.poll_timeout_sec", d.Telegram.PollTimeoutSec)
	v.SetDefault("telegram.debug", d.Telegram.Debug)

	v.SetDefault("server.enabled", d.Server.Enabled)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout_sec", d.Server.RequestTimeoutSec)

	for name, u := range map[string]Upstream{"monobank": d.Monobank, "privatbank": d.Privatbank} {
		v.SetDefault(name+".endpoint", u.Endpoint)
		v.SetDefault(name+".timeout_sec", u.TimeoutSec)
		v.SetDefault(name+".retries", u.Retries)
		v.SetDefault(name+".retry_backoff_ms", u.RetryBackoffMs)
		v.SetDefault(name+".max_requests_per_minute", u.MaxRequestsPerMinute)
		v.SetDefault(name+".min_request_interval_sec", u.MinRequestIntervalSec)
		v.SetDefault(name+".burst", u.Burst)
	}

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.sweep_interval_sec", d.Cache.SweepIntervalSec)
	v.SetDefault("cache.warm_interval_sec", d.Cache.WarmIntervalSec)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.prefix", d.Cache.Redis.Prefix)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
