package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	DatabaseURL      string
	AutoCallInterval time.Duration
	JWTSecret        string
	RedisAddr        string
	TenantCacheTTL   time.Duration
	MQTTBrokerURL    string
	MQTTClientID     string
	LogLevel         string
	OTLPEndpoint     string
	OTLPInsecure     bool
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = "kiosk-service"
	}

	return Config{
		Port:             port,
		DatabaseURL:      os.Getenv("DB_DSN"),
		AutoCallInterval: readDurationSeconds("AUTO_CALL_INTERVAL_SECONDS", 60),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		TenantCacheTTL:   readDurationSeconds("TENANT_CACHE_TTL_SECONDS", 300),
		MQTTBrokerURL:    os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:     clientID,
		LogLevel:         os.Getenv("LOG_LEVEL"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:     readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
