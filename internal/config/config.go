// Package config reads the settings for the wallet ledger binaries.
package config

import (
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the binaries read from the environment.
type Config struct {
	StoreDriver string
	HTTPAddr    string

	Postgres   Postgres
	ClickHouse ClickHouse
	Log        Log

	PriceSource   string
	PriceInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

// Postgres holds the settings for the document store database.
type Postgres struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
}

// URL returns the pgx connection string.
func (p Postgres) URL() string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.Name,
	}

	return dsn.String()
}

// ClickHouse holds the settings for the price history database.
type ClickHouse struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
}

// Log holds the logging settings.
type Log struct {
	Level  string
	Format string
	Output string
	File   string
}

func defaults(v *viper.Viper) {
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "walletledger")
	v.SetDefault("DB_USERNAME", "walletledger")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("CLICKHOUSE_HOST", "localhost")
	v.SetDefault("CLICKHOUSE_PORT", "9000")
	v.SetDefault("CLICKHOUSE_NAME", "pricewarp")
	v.SetDefault("CLICKHOUSE_USERNAME", "default")
	v.SetDefault("CLICKHOUSE_PASSWORD", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_FILE", "logs/walletledger.log")
	v.SetDefault("PRICE_SOURCE", "binance")
	v.SetDefault("PRICE_INTERVAL", "1m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "wallet-transactions")
}

// Load reads the configuration from environment variables, applying defaults
// for anything that is not set.
func Load() Config {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	var brokers []string

	for _, broker := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return Config{
		StoreDriver: v.GetString("STORE_DRIVER"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		Postgres: Postgres{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			Username: v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
		},
		ClickHouse: ClickHouse{
			Host:     v.GetString("CLICKHOUSE_HOST"),
			Port:     v.GetString("CLICKHOUSE_PORT"),
			Name:     v.GetString("CLICKHOUSE_NAME"),
			Username: v.GetString("CLICKHOUSE_USERNAME"),
			Password: v.GetString("CLICKHOUSE_PASSWORD"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
			File:   v.GetString("LOG_FILE"),
		},
		PriceSource:   v.GetString("PRICE_SOURCE"),
		PriceInterval: v.GetDuration("PRICE_INTERVAL"),
		KafkaBrokers:  brokers,
		KafkaTopic:    v.GetString("KAFKA_TOPIC"),
	}
}
