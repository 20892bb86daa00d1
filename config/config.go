package config

import (
	"os"
	"strconv"
	"time"
)

// Encoding selects how the outbound payload is serialized before signing.
const (
	EncodingJSON = "json"
	EncodingForm = "form"
)

type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string
	Port        int
	MetricsPort int

	DatabaseURL string // empty = JSON file store under DataDir
	DataDir     string

	SessionBackend string // "postgres" or "redis"
	RedisAddr      string

	UpstreamTimeout  time.Duration
	UpstreamEncoding string // EncodingJSON or EncodingForm
	AllowZeroBet     bool

	KafkaBrokers string // empty = event publishing disabled
	KafkaTopic   string
}

func Load() *Config {
	port := 8080
	// Prefer PORT (Render, Fly.io, Railway, etc.) then BRIDGE_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("BRIDGE_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	metricsPort := 9095
	if p := os.Getenv("METRICS_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			metricsPort = v
		}
	}
	timeout := 10 * time.Second
	if t := os.Getenv("UPSTREAM_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil && d > 0 {
			timeout = d
		}
	}
	encoding := os.Getenv("UPSTREAM_ENCODING")
	if encoding != EncodingForm {
		encoding = EncodingJSON
	}
	backend := os.Getenv("SESSION_BACKEND")
	if backend != "redis" {
		backend = "postgres"
	}
	return &Config{
		Env:              getEnv("ENV", "local"),
		ServiceName:      getEnv("SERVICE_NAME", "wallet-bridge"),
		Port:             port,
		MetricsPort:      metricsPort,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DataDir:          getEnv("BRIDGE_DATA_DIR", "data"),
		SessionBackend:   backend,
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		UpstreamTimeout:  timeout,
		UpstreamEncoding: encoding,
		AllowZeroBet:     os.Getenv("ALLOW_ZERO_BET") == "true",
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:       getEnv("KAFKA_TOPIC_TRANSACTIONS", "wallet.transactions.recorded"),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
