package config

import (
	"os"
	"strconv"
	"time"

	"tixgate/internal/database"
	"tixgate/internal/locks"
	"tixgate/internal/messaging"
)

// Config holds the application configuration.
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	// ReservationWindow bounds how long a seat/zone hold stays alive without
	// being promoted into an order. OrderTimeout is the longer window a
	// pending order gets before the sweeper cancels it.
	ReservationWindow time.Duration
	OrderTimeout      time.Duration
	SweepInterval     time.Duration

	Database database.Config
	Redis    locks.Config
	NATS     messaging.Config
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		GinMode:   getEnv("GIN_MODE", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		ReservationWindow: time.Duration(getEnvInt("RESERVATION_WINDOW_SEC", 600)) * time.Second,
		OrderTimeout:      time.Duration(getEnvInt("ORDER_TIMEOUT_SEC", 900)) * time.Second,
		SweepInterval:     time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 60)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "tixgate"),
			Password:           getEnv("DB_PASSWORD", "tixgate123"),
			DBName:             getEnv("DB_NAME", "tixgate"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: locks.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "tixgate"),
			ClientID:  getEnv("NATS_CLIENT_ID", "tixgate-api"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
