package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// LeadsConfig tunes the lead-capture dialogue.
type LeadsConfig struct {
	// Options is the list of service categories offered to the user.
	Options []string `yaml:"options" envconfig:"LEADS_OPTIONS"`
	// MinPhoneDigits is the phone validation threshold.
	MinPhoneDigits int `yaml:"min_phone_digits" envconfig:"LEADS_MIN_PHONE_DIGITS"`
	// SessionTTLMinutes expires idle sessions; 0 disables expiry.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" envconfig:"LEADS_SESSION_TTL_MINUTES"`
	// KeepOnSinkError preserves the session after a failed submission
	// so the user can confirm again.
	KeepOnSinkError bool `yaml:"keep_session_on_sink_error" envconfig:"LEADS_KEEP_ON_SINK_ERROR"`
	// SubmitTimeoutSeconds bounds the record sink call.
	SubmitTimeoutSeconds int    `yaml:"submit_timeout_seconds" envconfig:"LEADS_SUBMIT_TIMEOUT_SECONDS"`
	ContactLink          string `yaml:"contact_link" envconfig:"LEADS_CONTACT_LINK"`
	WebsiteURL           string `yaml:"website_url" envconfig:"LEADS_WEBSITE_URL"`
}

// SheetsConfig holds Google Sheets sink settings. Credentials are accepted
// only through the environment, never from the YAML file.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	Range           string `yaml:"range" envconfig:"SPREADSHEET_RANGE"`
	CredentialsJSON string `yaml:"-" envconfig:"GOOGLE_CREDENTIALS_JSON"`
}

// SinkConfig selects and configures the record sink backend.
type SinkConfig struct {
	Driver string       `yaml:"driver" envconfig:"SINK_DRIVER"`
	Sheets SheetsConfig `yaml:"sheets"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DefaultOptions mirrors the service catalogue offered on /start when the
// configuration does not override it.
var DefaultOptions = []string{
	"Digital Marketing Strategy",
	"Paid Marketing",
	"SEO",
	"Creatives",
}

// DatabaseConfig holds Postgres connection settings for the database record
// sink. core/database aliases this type as database.Config; it lives here so
// the config package does not import core/database (which imports core/logger,
// which imports this package).
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// MigrationsDir overrides the default ./migrations location.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Config aggregates the full bot configuration.
type Config struct {
	Telegram  TelegramConfig      `yaml:"telegram"`
	Webhook   WebhookConfig       `yaml:"webhook"`
	Logging   LoggingConfig       `yaml:"logging"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Leads     LeadsConfig         `yaml:"leads"`
	Sink      SinkConfig          `yaml:"sink"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
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

	if err := normalizeLeads(&cfg.Leads); err != nil {
		return err
	}
	if err := normalizeSink(cfg); err != nil {
		return err
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

func normalizeLeads(lc *LeadsConfig) error {
	opts := make([]string, 0, len(lc.Options))
	for _, o := range lc.Options {
		o = strings.TrimSpace(o)
		if o != "" {
			opts = append(opts, o)
		}
	}
	if len(opts) == 0 {
		opts = append(opts, DefaultOptions...)
	}
	lc.Options = opts

	if lc.MinPhoneDigits < 0 {
		return fmt.Errorf("leads.min_phone_digits must be >= 0")
	}
	if lc.MinPhoneDigits == 0 {
		lc.MinPhoneDigits = 10
	}
	if lc.SessionTTLMinutes < 0 {
		return fmt.Errorf("leads.session_ttl_minutes must be >= 0")
	}
	if lc.SubmitTimeoutSeconds < 0 {
		return fmt.Errorf("leads.submit_timeout_seconds must be >= 0")
	}
	return nil
}

func normalizeSink(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Sink.Driver))
	if driver == "" {
		driver = "sheets"
	}
	switch driver {
	case "sheets":
		if strings.TrimSpace(cfg.Sink.Sheets.SpreadsheetID) == "" {
			return fmt.Errorf("sink.sheets.spreadsheet_id is required when sink.driver is 'sheets'")
		}
		if strings.TrimSpace(cfg.Sink.Sheets.CredentialsJSON) == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS_JSON is required when sink.driver is 'sheets'")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Database.Host) == "" {
			return fmt.Errorf("database.host is required when sink.driver is 'postgres'")
		}
		if strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.name is required when sink.driver is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid sink.driver %q; allowed: sheets, postgres", cfg.Sink.Driver)
	}
	cfg.Sink.Driver = driver
	return nil
}
