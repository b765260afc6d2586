package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Sink.Driver = "sheets"
	cfg.Sink.Sheets.SpreadsheetID = "sheet-id"
	cfg.Sink.Sheets.CredentialsJSON = `{"type":"service_account"}`
	return cfg
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, DefaultOptions, cfg.Leads.Options)
	assert.Equal(t, 10, cfg.Leads.MinPhoneDigits)
	assert.Equal(t, "sheets", cfg.Sink.Driver)
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeLeadsOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Leads.Options = []string{"  SEO  ", "", "Creatives"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{"SEO", "Creatives"}, cfg.Leads.Options)
}

func TestNormalizeSinkSheetsRequiresCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Sink.Sheets.CredentialsJSON = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeSinkPostgres(t *testing.T) {
	cfg := validConfig()
	cfg.Sink = SinkConfig{Driver: "postgres"}

	assert.Error(t, Normalize(cfg), "host and name are required")

	cfg.Database.Host = "localhost"
	cfg.Database.Name = "leads"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "postgres", cfg.Sink.Driver)
}

func TestNormalizeSinkUnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Sink.Driver = "csv"
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeWebhookMode(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "webhook"
	assert.Error(t, Normalize(cfg), "webhook settings are required")

	cfg.Webhook.URL = "https://bot.example.com/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	require.NoError(t, Normalize(cfg))
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"Callback", "message"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{"callback", "message"}, cfg.RateLimit.ExcludeUpdates)

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	assert.Error(t, Normalize(cfg))
}
