package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token       string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminChatID ChatID `yaml:"admin_chat_id" envconfig:"ADMIN_CHAT_ID"`
	RunMode     string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LinksConfig lists the external URLs placed in buttons and message bodies.
type LinksConfig struct {
	AffiliateURL  string `yaml:"affiliate_url" envconfig:"AFFILIATE_URL"`
	MiniAppURL    string `yaml:"miniapp_url" envconfig:"MINIAPP_URL"`
	AdvantagesURL string `yaml:"advantages_url" envconfig:"ADVANTAGES_URL"`
}

// BannerConfig points to the optional start banner. A readable local file wins over the URL.
type BannerConfig struct {
	URL  string `yaml:"url" envconfig:"START_IMAGE_URL"`
	Path string `yaml:"path" envconfig:"START_IMAGE_PATH"`
}

// HealthConfig configures the keepalive HTTP listener.
type HealthConfig struct {
	Port Port `yaml:"port" envconfig:"PORT"`
}

// StoreConfig selects where conversation state is persisted.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"STORE_DRIVER"`
	// Path is the sqlite database file used by the sqlite driver.
	Path string `yaml:"path" envconfig:"PERSIST_PATH"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// SenderConfig tunes the asynchronous outbound dispatcher.
type SenderConfig struct {
	QueueSize  int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	MaxRetries int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// StoreSQLite persists sessions in a local sqlite file.
	StoreSQLite = "sqlite"
	// StorePostgres persists sessions in PostgreSQL using DB_* settings.
	StorePostgres = "postgres"
	// StoreMemory keeps sessions in process memory only.
	StoreMemory = "memory"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

const (
	DefaultAffiliateURL  = "https://stake.bet/?c=b7de45ae56"
	DefaultMiniAppURL    = "https://darkred-mantis-906245.hostingersite.com"
	DefaultAdvantagesURL = "https://mediumaquamarine-crab-726883.hostingersite.com"
	DefaultBannerPath    = "start_banner.jpg"
	DefaultHealthPort    = 8080

	dataMount       = "/data"
	dataMountedPath = "/data/bot_state.db"
	localStatePath  = "bot_state.db"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DatabaseConfig holds PostgreSQL connection settings used when the postgres store is selected.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Links     LinksConfig     `yaml:"links"`
	Banner    BannerConfig    `yaml:"banner"`
	Health    HealthConfig    `yaml:"health"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sender    SenderConfig    `yaml:"sender"`

	// Warnings lists settings Normalize replaced with a fallback. They are
	// logged once the logger is up.
	Warnings []string `yaml:"-" ignored:"true"`
}

// ChatID decodes a Telegram chat identifier. Malformed values decode to 0 so that
// a bad admin id disables the relay instead of stopping the process.
type ChatID int64

// Decode implements envconfig.Decoder.
func (id *ChatID) Decode(value string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		*id = 0
		return nil
	}
	*id = ChatID(n)
	return nil
}

// Int64 returns the raw identifier.
func (id ChatID) Int64() int64 { return int64(id) }

// Port decodes a TCP port and falls back to DefaultHealthPort on malformed input.
type Port int

// Decode implements envconfig.Decoder.
func (p *Port) Decode(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 || n > 65535 {
		*p = DefaultHealthPort
		return nil
	}
	*p = Port(n)
	return nil
}

// Load reads the optional YAML file at path, then .env and process environment.
// A missing YAML file is not an error: the bot is normally configured through env only.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// .env is optional; real environment always wins over it.
	_ = godotenv.Load()

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (BOT_TOKEN)")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	cfg.Links.AffiliateURL = orDefault(cfg.Links.AffiliateURL, DefaultAffiliateURL)
	cfg.Links.MiniAppURL = orDefault(cfg.Links.MiniAppURL, DefaultMiniAppURL)
	cfg.Links.AdvantagesURL = orDefault(cfg.Links.AdvantagesURL, DefaultAdvantagesURL)
	cfg.Banner.URL = strings.TrimSpace(cfg.Banner.URL)
	cfg.Banner.Path = orDefault(cfg.Banner.Path, DefaultBannerPath)

	if cfg.Health.Port <= 0 {
		cfg.Health.Port = DefaultHealthPort
	}

	normalizeStore(cfg)

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
	return nil
}

func normalizeStore(cfg *Config) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if driver == "" {
		driver = StoreSQLite
	}
	switch driver {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			cfg.Warnings = append(cfg.Warnings, "store.driver postgres needs database.host and database.name; using sqlite")
			driver = StoreSQLite
			break
		}
		cfg.Database.Port = orDefault(cfg.Database.Port, "5432")
		cfg.Database.SSLMode = orDefault(cfg.Database.SSLMode, "disable")
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	default:
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown store.driver %q; using sqlite", cfg.Store.Driver))
		driver = StoreSQLite
	}
	if driver == StoreSQLite && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStatePath()
	}
	cfg.Store.Driver = driver
}

// DefaultStatePath prefers the /data mount used by hosted deployments and falls
// back to a file in the working directory.
func DefaultStatePath() string {
	if st, err := os.Stat(dataMount); err == nil && st.IsDir() {
		return dataMountedPath
	}
	return localStatePath
}

// AdminEnabled reports whether an admin chat is configured for the relay.
func (c *Config) AdminEnabled() bool {
	return c != nil && c.Telegram.AdminChatID != 0
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

// CoreConfig lets *Config serve as the configuration carrier of the cmd runner.
func (c *Config) CoreConfig() *Config { return c }
