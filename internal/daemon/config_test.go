package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8080)
	}
	if cfg.Rewards.Timezone != "UTC" {
		t.Errorf("Rewards.Timezone = %q, want UTC", cfg.Rewards.Timezone)
	}
	if cfg.Withdrawals.Minimum != 1.0 {
		t.Errorf("Withdrawals.Minimum = %v, want 1.0", cfg.Withdrawals.Minimum)
	}
	if cfg.Withdrawals.FeePercent != 0 {
		t.Errorf("Withdrawals.FeePercent = %v, want 0", cfg.Withdrawals.FeePercent)
	}
	if cfg.Serializer.Lanes != 16 {
		t.Errorf("Serializer.Lanes = %d, want 16", cfg.Serializer.Lanes)
	}
	if cfg.Serializer.RedisAddr != "" {
		t.Error("Redis lock should be disabled by default")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	s := cfg.Schedule()
	if s.NewUserBonus.String() != "1" || s.FirstTaskBonus.String() != "3" {
		t.Errorf("Schedule = %+v", s)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"5m", 5 * time.Minute},
		{"24h", 24 * time.Hour},
		{"", time.Second},        // Default
		{"garbage", time.Second}, // Default
		{"-1s", time.Second},     // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseDuration(tt.input, time.Second)
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[api]
port = 9090

[rewards]
timezone = "Asia/Dhaka"

[withdrawals]
minimum = 50.0
methods = ["bkash"]

[admin]
ids = ["1"]
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TAKAX_ADMIN_IDS", "10, 20")
	t.Setenv("TAKAX_REDIS_ADDR", "localhost:6379")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, default should survive", cfg.API.Host)
	}
	if cfg.Location().String() != "Asia/Dhaka" {
		t.Errorf("Location = %v", cfg.Location())
	}
	if len(cfg.Withdrawals.Methods) != 1 || cfg.Withdrawals.Minimum != 50 {
		t.Errorf("Withdrawals = %+v", cfg.Withdrawals)
	}
	if !cfg.IsAdmin("20") || cfg.IsAdmin("1") {
		t.Errorf("Admin.IDs = %v, env should replace file", cfg.Admin.IDs)
	}
	if cfg.Serializer.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.Serializer.RedisAddr)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Errorf("BotToken = %q", cfg.Telegram.BotToken)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoadConfig_BadTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[rewards]\ntimezone = \"Mars/Olympus\"\n"), 0600)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestConfigWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := DefaultConfig()
	cfg.API.Port = 7000
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != 7000 {
		t.Errorf("API.Port = %d, want 7000", got.API.Port)
	}
}

func TestAddrAndHTTPOverride(t *testing.T) {
	t.Setenv("TAKAX_HTTP_ADDR", "0.0.0.0:3000")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}
