package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	HTTPPort string

	Store      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AMQPURL                string
	AMQPExchange           string
	KafkaBrokers           []string
	KafkaOrderChangedTopic string
	OSRMURL                string

	LegDuration        time.Duration
	StalenessWindow    time.Duration
	RouteTimeout       time.Duration
	PollInterval       time.Duration
	SimulationInterval time.Duration
	// SimulationEnabled defaults to true when no AMQP feed brings live partner positions.
	SimulationEnabled bool
}

// DSN returns the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8082")
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "ordertrack")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("AMQP_EXCHANGE", "partner.locations")
	v.SetDefault("KAFKA_ORDER_CHANGED_TOPIC", "order.status")
	v.SetDefault("LEG_DURATION", "20s")
	v.SetDefault("STALENESS_WINDOW", "30s")
	v.SetDefault("ROUTE_TIMEOUT", "5s")
	v.SetDefault("POLL_INTERVAL", "10s")
	v.SetDefault("SIMULATION_INTERVAL", "1s")
}

// LoadConfig reads every key from v. Flags bound to v win over the environment.
func LoadConfig(v *viper.Viper) Config {
	cfg := Config{
		HTTPPort:               v.GetString("HTTP_PORT"),
		Store:                  strings.ToLower(v.GetString("STORE")),
		DBHost:                 v.GetString("DB_HOST"),
		DBPort:                 v.GetString("DB_PORT"),
		DBUser:                 v.GetString("DB_USER"),
		DBPassword:             v.GetString("DB_PASSWORD"),
		DBName:                 v.GetString("DB_NAME"),
		DBSslMode:              v.GetString("DB_SSLMODE"),
		AMQPURL:                v.GetString("AMQP_URL"),
		AMQPExchange:           v.GetString("AMQP_EXCHANGE"),
		KafkaBrokers:           splitList(v.GetString("KAFKA_BROKERS")),
		KafkaOrderChangedTopic: v.GetString("KAFKA_ORDER_CHANGED_TOPIC"),
		OSRMURL:                v.GetString("OSRM_URL"),
		LegDuration:            v.GetDuration("LEG_DURATION"),
		StalenessWindow:        v.GetDuration("STALENESS_WINDOW"),
		RouteTimeout:           v.GetDuration("ROUTE_TIMEOUT"),
		PollInterval:           v.GetDuration("POLL_INTERVAL"),
		SimulationInterval:     v.GetDuration("SIMULATION_INTERVAL"),
	}

	cfg.SimulationEnabled = cfg.AMQPURL == ""
	if v.IsSet("SIMULATION_ENABLED") {
		cfg.SimulationEnabled = v.GetBool("SIMULATION_ENABLED")
	}
	return cfg
}

// Validate checks the settings a process cannot start without.
func (c Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}
	switch c.Store {
	case StorePostgres:
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.PollInterval <= 0 || c.SimulationInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL and SIMULATION_INTERVAL must be positive")
	}
	return nil
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
