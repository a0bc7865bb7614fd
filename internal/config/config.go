// Package config собирает настройки сервиса из файла, окружения и флагов.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix - префикс переменных окружения: DAILYQUIZ_HTTP_ADDR -> http.addr.
const EnvPrefix = "DAILYQUIZ_"

// ErrValidation возвращается, если настройки некорректны.
var ErrValidation = errors.New("invalid config")

// Config - настройки сервиса.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Storage  Storage  `koanf:"storage"`
	Redis    Redis    `koanf:"redis"`
	Quiz     Quiz     `koanf:"quiz"`
	Telegram Telegram `koanf:"telegram"`
	Log      Log      `koanf:"log"`
}

type HTTP struct {
	Addr     string        `koanf:"addr" validate:"required,hostname_port"`
	Shutdown time.Duration `koanf:"shutdown" validate:"gt=0"`
	Origins  string        `koanf:"origins" validate:"required"`
	// Limit - запросов в минуту с одного адреса, 0 отключает ограничение.
	Limit int `koanf:"limit" validate:"gte=0"`
}

type Storage struct {
	Driver string `koanf:"driver" validate:"oneof=memory sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required_unless=Driver memory"`
}

// Redis включает быструю проверку повторных ответов, если задан Addr.
type Redis struct {
	Addr     string `koanf:"addr" validate:"omitempty,hostname_port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0,lte=15"`
}

type Quiz struct {
	Timezone string `koanf:"timezone" validate:"required,timezone"`
	// Seed - путь к JSON с вопросами, загружаемыми при старте.
	Seed string `koanf:"seed"`
}

// Telegram включает бота, если задан Token.
type Telegram struct {
	Token  string `koanf:"token"`
	WebApp string `koanf:"webapp" validate:"omitempty,url"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Location возвращает часовой пояс квиза.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Quiz.Timezone)
}

// Flags возвращает набор флагов командной строки. Значения флагов по
// умолчанию служат значениями по умолчанию всей конфигурации.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("dailyquiz", pflag.ContinueOnError)

	fs.String("config", "", "path to YAML config file")

	fs.String("http.addr", ":8080", "HTTP listen address")
	fs.Duration("http.shutdown", 10*time.Second, "graceful shutdown timeout")
	fs.String("http.origins", "*", "comma-separated CORS allowed origins")
	fs.Int("http.limit", 120, "requests per minute per client, 0 disables")

	fs.String("storage.driver", "memory", "storage backend: memory, sqlite or postgres")
	fs.String("storage.dsn", "", "sqlite file or postgres connection string")

	fs.String("redis.addr", "", "redis address for the answer guard, empty disables")
	fs.String("redis.password", "", "redis password")
	fs.Int("redis.db", 0, "redis database")

	fs.String("quiz.timezone", "UTC", "IANA time zone that defines the quiz day")
	fs.String("quiz.seed", "", "path to JSON question pack loaded at startup")

	fs.String("telegram.token", "", "telegram bot token, empty disables the bot")
	fs.String("telegram.webapp", "", "URL of the mini app opened from /start")

	fs.String("log.level", "info", "log level: debug, info, warn or error")
	fs.String("log.format", "text", "log format: text or json")

	return fs
}

// Load разбирает args и собирает конфигурацию. Приоритет по возрастанию:
// значения флагов по умолчанию, файл из --config, окружение, явно заданные флаги.
func Load(args []string) (*Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет конфигурацию.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
