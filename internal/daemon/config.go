// Package daemon holds process-level configuration and wiring for the
// takax server: config file, environment overrides and the dependency graph
// built by `takax serve`.
package daemon

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without system zoneinfo

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Configuration ──────────────────────────────────────────────────────────
// Read from $TAKAX_HOME/config.toml (default ~/.takax/config.toml).
// Missing keys keep their DefaultConfig value; environment variables win
// over the file.

// Config is the full server configuration.
type Config struct {
	API         APIConfig         `toml:"api"`
	Database    DatabaseConfig    `toml:"database"`
	Rewards     RewardsConfig     `toml:"rewards"`
	Withdrawals WithdrawalsConfig `toml:"withdrawals"`
	Telegram    TelegramConfig    `toml:"telegram"`
	Serializer  SerializerConfig  `toml:"serializer"`
	Admin       AdminConfig       `toml:"admin"`
	Log         LogConfig         `toml:"log"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	RequestTimeout string   `toml:"request_timeout"`
	CORSOrigins    []string `toml:"cors_origins"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Dir string `toml:"dir"` // empty means TAKAX_HOME
}

// RewardsConfig holds the payout schedule that is not tier-driven.
type RewardsConfig struct {
	Timezone       string  `toml:"timezone"`
	NewUserBonus   float64 `toml:"new_user_bonus"`
	FirstTaskBonus float64 `toml:"first_task_bonus"`
	ActiveWindow   string  `toml:"active_window"` // how recent activity counts as "active" on the dashboard
}

// WithdrawalsConfig bounds payout requests.
type WithdrawalsConfig struct {
	Minimum    float64  `toml:"minimum"`
	FeePercent float64  `toml:"fee_percent"`
	Methods    []string `toml:"methods"`
}

// TelegramConfig configures initData checks and channel notifications.
type TelegramConfig struct {
	BotToken          string `toml:"bot_token"`
	ChannelID         int64  `toml:"channel_id"`
	InitDataMaxAge    string `toml:"init_data_max_age"`
	NotifyConcurrency int    `toml:"notify_concurrency"`
	NotifyTimeout     string `toml:"notify_timeout"`
}

// SerializerConfig sizes the per-user command lanes and the optional
// cross-instance Redis lock.
type SerializerConfig struct {
	Lanes         int    `toml:"lanes"`
	QueueDepth    int    `toml:"queue_depth"`
	RedisAddr     string `toml:"redis_addr"` // empty disables the Redis lock
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	LockTTL       string `toml:"lock_ttl"`
}

// AdminConfig lists the Telegram ids allowed on admin routes.
type AdminConfig struct {
	IDs []string `toml:"ids"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "text"
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: "30s",
			CORSOrigins:    []string{"*"},
		},
		Rewards: RewardsConfig{
			Timezone:       "UTC",
			NewUserBonus:   1.0,
			FirstTaskBonus: 3.0,
			ActiveWindow:   "720h",
		},
		Withdrawals: WithdrawalsConfig{
			Minimum:    1.0,
			FeePercent: 0,
			Methods:    []string{"bkash", "nagad", "rocket", "bank"},
		},
		Telegram: TelegramConfig{
			InitDataMaxAge:    "24h",
			NotifyConcurrency: 8,
			NotifyTimeout:     "10s",
		},
		Serializer: SerializerConfig{
			Lanes:      16,
			QueueDepth: 64,
			LockTTL:    "10s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Home returns the takax state directory.
func Home() string {
	if env := os.Getenv("TAKAX_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".takax")
}

// ConfigPath is the default config file location.
func ConfigPath() string { return filepath.Join(Home(), "config.toml") }

// LoadConfig reads path (if it exists) over the defaults, loads .env files
// and applies environment overrides. An empty path means ConfigPath().
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat %s: %w", path, err)
	}

	// .env next to the config, then the working directory. Existing
	// variables are never overwritten.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	_ = godotenv.Load()

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TAKAX_HTTP_ADDR"); v != "" {
		if host, port, err := net.SplitHostPort(v); err == nil {
			if p, err := strconv.Atoi(port); err == nil {
				c.API.Host, c.API.Port = host, p
			}
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHANNEL_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChannelID = id
		}
	}
	if v := os.Getenv("TAKAX_ADMIN_IDS"); v != "" {
		c.Admin.IDs = splitList(v)
	}
	if v := os.Getenv("TAKAX_REDIS_ADDR"); v != "" {
		c.Serializer.RedisAddr = v
	}
	if v := os.Getenv("TAKAX_DB_DIR"); v != "" {
		c.Database.Dir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := time.LoadLocation(c.Rewards.Timezone); err != nil {
		return fmt.Errorf("rewards.timezone: %w", err)
	}
	if c.Withdrawals.Minimum < 0 || c.Withdrawals.FeePercent < 0 || c.Withdrawals.FeePercent >= 100 {
		return fmt.Errorf("withdrawals: minimum must be >= 0 and fee_percent in [0,100)")
	}
	if len(c.Withdrawals.Methods) == 0 {
		return fmt.Errorf("withdrawals.methods must not be empty")
	}
	if c.Serializer.Lanes <= 0 {
		return fmt.Errorf("serializer.lanes must be positive")
	}
	return nil
}

// ─── Derived Values ─────────────────────────────────────────────────────────

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.API.Host, strconv.Itoa(c.API.Port))
}

// DBDir is the directory holding takax.db.
func (c Config) DBDir() string {
	if c.Database.Dir != "" {
		return c.Database.Dir
	}
	return Home()
}

// Location is the timezone used for daily windows.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Rewards.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Schedule is the referral payout schedule.
func (c Config) Schedule() domain.ReferralSchedule {
	return domain.ReferralSchedule{
		NewUserBonus:   decimal.NewFromFloat(c.Rewards.NewUserBonus),
		FirstTaskBonus: decimal.NewFromFloat(c.Rewards.FirstTaskBonus),
	}
}

// parseDuration reads a duration string, falling back to def.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// RequestTimeout is the per-request handler deadline.
func (c Config) RequestTimeout() time.Duration { return parseDuration(c.API.RequestTimeout, 30*time.Second) }

// ActiveWindow is how far back activity counts as active.
func (c Config) ActiveWindow() time.Duration { return parseDuration(c.Rewards.ActiveWindow, 30*24*time.Hour) }

// InitDataMaxAge bounds initData freshness.
func (c Config) InitDataMaxAge() time.Duration { return parseDuration(c.Telegram.InitDataMaxAge, 24*time.Hour) }

// NotifyTimeout bounds one notification delivery.
func (c Config) NotifyTimeout() time.Duration { return parseDuration(c.Telegram.NotifyTimeout, 10*time.Second) }

// LockTTL is the Redis lock expiry.
func (c Config) LockTTL() time.Duration { return parseDuration(c.Serializer.LockTTL, 10*time.Second) }

// IsAdmin reports whether id may use admin routes.
func (c Config) IsAdmin(id string) bool {
	if id == "" {
		return false
	}
	for _, a := range c.Admin.IDs {
		if a == id {
			return true
		}
	}
	return false
}

// Write saves cfg to path as TOML, creating the directory.
func (c Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
