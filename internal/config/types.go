package config

import "strings"

// Config is the top level configuration for igbridge.
type Config struct {
	App         AppConfig         `toml:"app"`
	Webhook     WebhookConfig     `toml:"webhook"`
	IG          IGConfig          `toml:"ig"`
	Engine      EngineConfig      `toml:"engine"`
	Instruments InstrumentsConfig `toml:"instruments"`
	Notify      NotifyConfig      `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// WebhookConfig carries the pre-shared token inbound signals must present.
type WebhookConfig struct {
	Token string `toml:"token"`
}

// IGConfig describes how to reach the dealing API. Live and demo accounts use
// separate credentials and base URLs; Live selects between them.
type IGConfig struct {
	Live                bool   `toml:"live"`
	APIKey              string `toml:"api_key"`
	Identifier          string `toml:"identifier"`
	Password            string `toml:"password"`
	LiveAPIURL          string `toml:"live_api_url"`
	DemoAPIURL          string `toml:"demo_api_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	RetryMax            int    `toml:"retry_max"`
	SessionTTLMinutes   int    `toml:"session_ttl_minutes"`
	EnsureTrailingStops bool   `toml:"ensure_trailing_stops"`
}

// BaseURL returns the dealing API root for the configured account mode.
func (c IGConfig) BaseURL() string {
	if c.Live {
		return strings.TrimSuffix(c.LiveAPIURL, "/")
	}
	return strings.TrimSuffix(c.DemoAPIURL, "/")
}

// EngineConfig tunes order confirmation behaviour. ConfirmAttempts of 1 keeps
// the single-shot confirmation contract; higher values retry a pending
// confirmation with ConfirmBackoffMS between polls before giving up with an
// unknown-outcome failure.
type EngineConfig struct {
	ConfirmAttempts  int `toml:"confirm_attempts"`
	ConfirmBackoffMS int `toml:"confirm_backoff_ms"`
}

// InstrumentsConfig points at an optional instrument catalog file. When empty
// the built-in catalog is used.
type InstrumentsConfig struct {
	Path string `toml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}
