package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

type Application struct {
	Env       string        `mapstructure:"env"        json:"env"`
	Host      string        `mapstructure:"host"       json:"host"`
	BaseURL   string        `mapstructure:"base_url"   json:"base_url"`
	SecretKey string        `mapstructure:"secret_key" json:"-"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"  json:"token_ttl"`
	Port      int           `mapstructure:"port"       json:"port"`
	// MetricsPort is where the notification consumer exposes /metrics.
	MetricsPort int `mapstructure:"metrics_port" json:"metrics_port"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host       string        `mapstructure:"host"        json:"host"`
	Password   string        `mapstructure:"password"    json:"-"`
	ProductTTL time.Duration `mapstructure:"product_ttl" json:"product_ttl"`
	Database   int           `mapstructure:"database"    json:"database"`
	Port       uint16        `mapstructure:"port"        json:"port"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type Broker struct {
	Kind    string   `mapstructure:"kind"     json:"kind"`
	Brokers []string `mapstructure:"brokers"  json:"brokers"`
	GroupID string   `mapstructure:"group_id" json:"group_id"`
}

type Payment struct {
	SecretKey     string `mapstructure:"secret_key"     json:"-"`
	WebhookSecret string `mapstructure:"webhook_secret" json:"-"`
	Currency      string `mapstructure:"currency"       json:"currency"`
	// APIURL overrides the Stripe API endpoint, e.g. for stripe-mock.
	APIURL string `mapstructure:"api_url" json:"apiUrl"`
}

type Mail struct {
	APIKey string `mapstructure:"api_key" json:"-"`
	From   string `mapstructure:"from"    json:"from"`
	APIURL string `mapstructure:"api_url" json:"apiUrl"`
}

type Outbox struct {
	Interval  time.Duration `mapstructure:"interval"   json:"interval"`
	BatchSize int32         `mapstructure:"batch_size" json:"batch_size"`
}

type Config struct {
	Application Application `mapstructure:"application" json:"application"`
	Database    Database    `mapstructure:"db"          json:"db"`
	Cache       Cache       `mapstructure:"cache"       json:"cache"`
	Otel        Otel        `mapstructure:"otel"        json:"otel"`
	Broker      Broker      `mapstructure:"broker"      json:"broker"`
	Payment     Payment     `mapstructure:"payment"     json:"payment"`
	Mail        Mail        `mapstructure:"mail"        json:"mail"`
	Outbox      Outbox      `mapstructure:"outbox"      json:"outbox"`
}

var (
	once   sync.Once
	config *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "development")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.metrics_port", 9090)
	v.SetDefault("application.base_url", "http://localhost:8080")
	v.SetDefault("application.token_ttl", 24*time.Hour)
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("db.max_connections", 20)
	v.SetDefault("db.min_connections", 2)
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.product_ttl", 5*time.Minute)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
	v.SetDefault("broker.kind", "redis")
	v.SetDefault("broker.group_id", "storefront-notification")
	v.SetDefault("payment.currency", "eur")
	v.SetDefault("mail.from", "Storefront <onboarding@resend.dev>")
	v.SetDefault("outbox.interval", time.Second)
	v.SetDefault("outbox.batch_size", 50)
}

// Load reads <dir>/<filename>.yaml. Every key can be overridden by an environment variable
// prefixed with STOREFRONT_, for example STOREFRONT_DB_HOST.
func Load(c context.Context, dir string, filename string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str("filename", filename).
		Logger()

	v := viper.New()
	v.SetConfigName(filename)
	v.AddConfigPath(dir)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		err = fmt.Errorf("failed reading config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("read config")

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("failed unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Any(log.KeyConfig, cfg).Msg("unmarshaled config")

	return &cfg, nil
}

// Get loads the config from ./env once per process and exits when it cannot be read.
func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		cfg, err := Load(c, "./env", filename)
		if err != nil {
			zerolog.Ctx(c).Fatal().Err(err).Str(log.KeyTag, "config Get").Msg(err.Error())
		}
		config = cfg
	})
	return config
}
