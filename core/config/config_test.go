package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "ADMIN_CHAT_ID", "AFFILIATE_URL", "MINIAPP_URL", "ADVANTAGES_URL",
		"START_IMAGE_URL", "START_IMAGE_PATH", "PORT", "PERSIST_PATH", "STORE_DRIVER",
		"TELEGRAM_RUN_MODE", "DB_HOST", "DB_NAME",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when BOT_TOKEN is missing")
	}
}

func TestLoadDefaultsFromEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", " 123:abc ")
	t.Setenv("ADMIN_CHAT_ID", "424242")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token not trimmed: %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminChatID.Int64() != 424242 {
		t.Fatalf("admin id = %d", cfg.Telegram.AdminChatID)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Links.AffiliateURL != DefaultAffiliateURL || cfg.Links.MiniAppURL != DefaultMiniAppURL || cfg.Links.AdvantagesURL != DefaultAdvantagesURL {
		t.Fatalf("links defaults not applied: %+v", cfg.Links)
	}
	if cfg.Banner.Path != DefaultBannerPath {
		t.Fatalf("banner path = %q", cfg.Banner.Path)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Fatalf("health port = %d", cfg.Health.Port)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Store.Path == "" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if !cfg.AdminEnabled() {
		t.Fatal("admin relay should be enabled")
	}
}

func TestLenientDecoders(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "1:x")
	t.Setenv("ADMIN_CHAT_ID", "not-a-number")
	t.Setenv("PORT", "eighty")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminEnabled() {
		t.Fatal("malformed admin id must disable the relay")
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Fatalf("malformed port should fall back, got %d", cfg.Health.Port)
	}
}

func TestYAMLThenEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := []byte(`
telegram:
  token: from-yaml
  admin_chat_id: 7
links:
  affiliate_url: https://aff.example
store:
  driver: memory
health:
  port: 9090
`)
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("env must override yaml, got %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminChatID != 7 {
		t.Fatalf("admin id = %d", cfg.Telegram.AdminChatID)
	}
	if cfg.Links.AffiliateURL != "https://aff.example" {
		t.Fatalf("affiliate = %q", cfg.Links.AffiliateURL)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Fatalf("driver = %q", cfg.Store.Driver)
	}
	if cfg.Health.Port != 9090 {
		t.Fatalf("port = %d", cfg.Health.Port)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"run mode", Config{Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}}},
		{"webhook without url", Config{Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}}},
		{"rate limit exclusion", Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			if err := Normalize(&cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNormalizeStoreFallsBackToSQLite(t *testing.T) {
	cases := []struct {
		name  string
		store StoreConfig
		db    DatabaseConfig
	}{
		{"unknown driver", StoreConfig{Driver: "redis"}, DatabaseConfig{}},
		{"postgres without host", StoreConfig{Driver: StorePostgres}, DatabaseConfig{Name: "bot"}},
		{"postgres without name", StoreConfig{Driver: "Postgres"}, DatabaseConfig{Host: "db"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Telegram: TelegramConfig{Token: "t"}, Store: tc.store, Database: tc.db}
			if err := Normalize(&cfg); err != nil {
				t.Fatal(err)
			}
			if cfg.Store.Driver != StoreSQLite || cfg.Store.Path == "" {
				t.Fatalf("store = %+v", cfg.Store)
			}
			if len(cfg.Warnings) != 1 {
				t.Fatalf("warnings = %q", cfg.Warnings)
			}
		})
	}

	cfg := Config{
		Telegram: TelegramConfig{Token: "t"},
		Store:    StoreConfig{Driver: StorePostgres},
		Database: DatabaseConfig{Host: "db", Name: "bot"},
	}
	if err := Normalize(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != StorePostgres || cfg.Database.Port != "5432" || len(cfg.Warnings) != 0 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
