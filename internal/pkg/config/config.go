package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is read once at startup and never modified afterwards.
type Config struct {
	TibberCfg   *TibberConfig
	ScheduleCfg *ScheduleConfig
	MqttCfg     *MqttConfig
	TelegramCfg *TelegramConfig
	Language    string `env:"LANGUAGE" envDefault:"nl"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
	HTTPAddr    string `env:"HTTP_ADDR"`
}

type TibberConfig struct {
	Token    string `env:"TIBBER_API_TOKEN,required,notEmpty"`
	Endpoint string `env:"TIBBER_API_ENDPOINT,required,notEmpty"`
}

type ScheduleConfig struct {
	Spec     string `env:"SCHEDULE" envDefault:"0 * * * *"`
	Timezone string `env:"SCHEDULE_TIMEZONE" envDefault:"Europe/Amsterdam"`
	location *time.Location
}

// Location is the loaded Timezone, UTC when the config was built by hand.
func (c *ScheduleConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// CronSpec returns the schedule pinned to the configured timezone.
func (c *ScheduleConfig) CronSpec() string {
	return fmt.Sprintf("CRON_TZ=%s %s", c.Timezone, c.Spec)
}

type MqttConfig struct {
	Host        string `env:"MQTT_HOST"`
	Username    string `env:"MQTT_USER"`
	Password    string `env:"MQTT_PASS"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"homeassistant"`
}

func (c *MqttConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

type TelegramConfig struct {
	Token  string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `env:"TELEGRAM_CHAT_ID"`
}

func (c *TelegramConfig) Enabled() bool {
	return c != nil && c.Token != "" && c.ChatID != 0
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadWithOptions(env.Options{})
}

// LoadWithOptions is Load with explicit env options, tests use it to supply
// their own environment.
func LoadWithOptions(opts env.Options) (*Config, error) {
	cfg := &Config{
		TibberCfg:   &TibberConfig{},
		ScheduleCfg: &ScheduleConfig{},
		MqttCfg:     &MqttConfig{},
		TelegramCfg: &TelegramConfig{},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	loc, err := time.LoadLocation(cfg.ScheduleCfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule timezone %q: %w", ErrInvalidConfig, cfg.ScheduleCfg.Timezone, err)
	}
	cfg.ScheduleCfg.location = loc

	return cfg, nil
}
