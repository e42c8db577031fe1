// Package internal loads and validates the console configuration.
package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"osc-console/automation"
	"osc-console/domain"
	"osc-console/errors"
)

var validate = validator.New()

// Config is read from the environment. List values are ';' separated,
// maps are "Key=Value;Key=Value".
type Config struct {
	Host              string        `env:"OSC_HOST,default=192.168.2.1" validate:"required"`
	ReceivePort       int           `env:"OSC_RECEIVE_PORT,default=1246" validate:"min=1,max=65535"`
	SendPort          int           `env:"OSC_SEND_PORT,default=9090" validate:"min=1,max=65535"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	BufferSize        int           `env:"BUFFER_SIZE,default=1024" validate:"min=1"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,default=./data/badger" validate:"required"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,default=./data/bluge" validate:"required"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s" validate:"gte=0"`
	SettleDelay       time.Duration `env:"SETTLE_DELAY,default=500ms" validate:"gte=0"`
	BatchWindow       time.Duration `env:"AUTOMATION_BATCH_WINDOW,default=250ms" validate:"gt=0"`
	AutoPin           bool          `env:"AUTO_PIN,default=false"`
	AutoGreet         bool          `env:"AUTO_GREET,default=false"`
	MaxPinned         int           `env:"MAX_PINNED,default=2" validate:"min=1,max=9"`
	PinPriority       string        `env:"PIN_PRIORITY,default=Host;Teacher;VIP"`
	NameCriteria      string        `env:"NAME_CRITERIA"`
	Greetings         string        `env:"GREETINGS"`
	PriorityTags      string        `env:"PRIORITY_TAGS,default=Host;Teacher;VIP"`
	Notifications     bool          `env:"NOTIFICATIONS,default=true"`
	NotificationSound bool          `env:"NOTIFICATION_SOUND,default=true"`
	Notifier          string        `env:"NOTIFIER,default=console" validate:"oneof=console log"`
	WatchKeywords     string        `env:"WATCH_KEYWORDS"`
	MetricsAddr       string        `env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnviron()
}

func FromEnviron() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return config, nil
}

// NameCriteriaRules falls back to the stock rules when NAME_CRITERIA is empty.
func (c Config) NameCriteriaRules() ([]domain.NameCriterion, error) {
	if strings.TrimSpace(c.NameCriteria) == "" {
		return domain.DefaultNameCriteria(), nil
	}
	return domain.ParseNameCriteria(c.NameCriteria)
}

// AutomationSettings overlays the configured values on the defaults.
func (c Config) AutomationSettings() (automation.Settings, error) {
	settings := automation.DefaultSettings()
	settings.AutoPin = c.AutoPin
	settings.AutoGreet = c.AutoGreet
	settings.MaxPinned = c.MaxPinned
	settings.PinPriority = SplitList(c.PinPriority)

	greetings, err := ParseGreetings(c.Greetings)
	if err != nil {
		return automation.Settings{}, err
	}
	for tag, message := range greetings {
		settings.Greetings[tag] = message
	}
	return settings, nil
}

func (c Config) PriorityTagList() []string {
	return SplitList(c.PriorityTags)
}

func (c Config) WatchKeywordList() []string {
	return SplitList(c.WatchKeywords)
}

// SplitList splits a ';' separated list, dropping blanks.
func SplitList(raw string) []string {
	var res []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

// ParseGreetings reads "Tag=Message;Tag=Message".
func ParseGreetings(raw string) (map[string]string, error) {
	res := make(map[string]string)
	for _, part := range SplitList(raw) {
		tag, message, ok := strings.Cut(part, "=")
		tag, message = strings.TrimSpace(tag), strings.TrimSpace(message)
		if !ok || tag == "" || message == "" {
			return nil, fmt.Errorf("%w: greeting %q", errors.ErrInvalidConfig, part)
		}
		res[tag] = message
	}
	return res, nil
}
