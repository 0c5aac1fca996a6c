package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port            int    `env:"PORT" envDefault:"3000"`
	DatabaseURL     string `env:"DATABASE_URL,required"`
	RedisURL        string `env:"REDIS_URL"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY,required"`
	ConfigTokenHash string `env:"CONFIG_TOKEN_HASH,required"`
	TTSVoice        string `env:"TTS_VOICE" envDefault:"alloy"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`

	// Anti-detection pacing. Delays are drawn uniformly from
	// [MinReplyDelayMs, MaxReplyDelayMs] before every outbound send.
	MinReplyDelayMs     int `env:"MIN_REPLY_DELAY_MS" envDefault:"2000"`
	MaxReplyDelayMs     int `env:"MAX_REPLY_DELAY_MS" envDefault:"5000"`
	BusinessHoursStart  int `env:"BUSINESS_HOURS_START" envDefault:"9"`
	BusinessHoursEnd    int `env:"BUSINESS_HOURS_END" envDefault:"18"`
	TimezoneOffsetHours int `env:"TIMEZONE_OFFSET_HOURS" envDefault:"-3"`

	MaxMessagesPerHour int `env:"MAX_MESSAGES_PER_HOUR" envDefault:"20"`
	MaxHistoryMessages int `env:"MAX_HISTORY_MESSAGES" envDefault:"5"`
	RetentionDays      int `env:"RETENTION_DAYS" envDefault:"90"`

	OperatorRateLimitPerMin int `env:"OPERATOR_RATE_LIMIT_PER_MIN" envDefault:"60"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) MinReplyDelay() time.Duration {
	return time.Duration(c.MinReplyDelayMs) * time.Millisecond
}

func (c *Config) MaxReplyDelay() time.Duration {
	return time.Duration(c.MaxReplyDelayMs) * time.Millisecond
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) Validate() error {
	if c.MinReplyDelayMs < 0 || c.MaxReplyDelayMs < c.MinReplyDelayMs {
		return fmt.Errorf("reply delay bounds invalid: min=%dms max=%dms", c.MinReplyDelayMs, c.MaxReplyDelayMs)
	}
	if c.BusinessHoursStart < 0 || c.BusinessHoursStart > 23 ||
		c.BusinessHoursEnd < 0 || c.BusinessHoursEnd > 23 {
		return fmt.Errorf("business hours out of range: start=%d end=%d", c.BusinessHoursStart, c.BusinessHoursEnd)
	}
	if c.BusinessHoursStart > c.BusinessHoursEnd {
		return fmt.Errorf("business hours start (%d) after end (%d)", c.BusinessHoursStart, c.BusinessHoursEnd)
	}
	if c.MaxMessagesPerHour <= 0 {
		return fmt.Errorf("MAX_MESSAGES_PER_HOUR must be positive, got %d", c.MaxMessagesPerHour)
	}
	if c.MaxHistoryMessages < 0 {
		return fmt.Errorf("MAX_HISTORY_MESSAGES must not be negative, got %d", c.MaxHistoryMessages)
	}
	if len(c.ConfigTokenHash) != 64 {
		return fmt.Errorf("CONFIG_TOKEN_HASH must be a hex-encoded sha256 digest (generate with: echo -n <token> | sha256sum)")
	}
	if _, err := hex.DecodeString(c.ConfigTokenHash); err != nil {
		return fmt.Errorf("CONFIG_TOKEN_HASH is not valid hex: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
