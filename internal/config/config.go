package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path, applies environment overrides
// (IGBRIDGE_ prefix, dots replaced by underscores), fills defaults and
// validates the result.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("IGBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnvKeys registers the secret-bearing keys so AutomaticEnv picks them up
// even when the file omits the section entirely.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"webhook.token",
		"ig.api_key",
		"ig.identifier",
		"ig.password",
		"notify.telegram.bot_token",
		"notify.telegram.chat_id",
	} {
		_ = v.BindEnv(key)
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = "info"
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = ":9980"
	}
	if strings.TrimSpace(c.IG.LiveAPIURL) == "" {
		c.IG.LiveAPIURL = "https://api.ig.com/gateway/deal"
	}
	if strings.TrimSpace(c.IG.DemoAPIURL) == "" {
		c.IG.DemoAPIURL = "https://demo-api.ig.com/gateway/deal"
	}
	if c.IG.TimeoutSeconds <= 0 {
		c.IG.TimeoutSeconds = 15
	}
	if c.IG.RetryMax <= 0 {
		c.IG.RetryMax = 5
	}
	if c.IG.SessionTTLMinutes <= 0 {
		c.IG.SessionTTLMinutes = 360
	}
	if c.Engine.ConfirmAttempts <= 0 {
		c.Engine.ConfirmAttempts = 1
	}
	if c.Engine.ConfirmBackoffMS <= 0 {
		c.Engine.ConfirmBackoffMS = 500
	}
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Webhook.Token) == "" {
		return fmt.Errorf("webhook.token is required")
	}
	if strings.TrimSpace(c.IG.APIKey) == "" {
		return fmt.Errorf("ig.api_key is required")
	}
	if strings.TrimSpace(c.IG.Identifier) == "" {
		return fmt.Errorf("ig.identifier is required")
	}
	if strings.TrimSpace(c.IG.Password) == "" {
		return fmt.Errorf("ig.password is required")
	}
	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.BotToken) == "" || strings.TrimSpace(c.Notify.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}
