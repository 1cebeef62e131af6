package config

import (
	"os"
	"strconv"
)

type Config struct {
	PORT string

	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	// Master key protecting provider secrets at rest. Loaded once at
	// startup; rotation requires re-encrypting stored secrets and a restart.
	ENCRYPTION_KEY string

	// Upstream call deadline in seconds. 0 uses the gateway default.
	UPSTREAM_TIMEOUT_SECONDS int

	// Provider base URL overrides, mainly for self-hosted or test targets.
	OPENAI_BASE_URL    string
	ANTHROPIC_BASE_URL string

	// Redis for distributed rate limiting. Empty addr falls back to
	// in-memory buckets.
	REDIS_ADDR     string
	REDIS_PASSWORD string

	// ClickHouse configuration for usage analytics
	CLICKHOUSE_HOST     string
	CLICKHOUSE_PORT     int
	CLICKHOUSE_DATABASE string
	CLICKHOUSE_USERNAME string
	CLICKHOUSE_PASSWORD string
	CLICKHOUSE_USE_TLS  bool

	// Auth0 / OIDC for the management API. Empty domain disables auth.
	AUTH0_DOMAIN        string
	AUTH0_CLIENT_ID     string
	AUTH0_CLIENT_SECRET string
	AUTH0_CALLBACK_URL  string
	STATE_SECRET        string

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	// Default to HTTP port 8123 (more compatible than native port 9000)
	clickhousePort := 8123
	if portStr := os.Getenv("CLICKHOUSE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			clickhousePort = port
		}
	}

	upstreamTimeout := 0
	if s := os.Getenv("UPSTREAM_TIMEOUT_SECONDS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			upstreamTimeout = v
		}
	}

	return &Config{
		PORT: GetEnvOrDefault("PORT", "8080"),

		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		ENCRYPTION_KEY: os.Getenv("ENCRYPTION_KEY"),

		UPSTREAM_TIMEOUT_SECONDS: upstreamTimeout,

		OPENAI_BASE_URL:    os.Getenv("OPENAI_BASE_URL"),
		ANTHROPIC_BASE_URL: os.Getenv("ANTHROPIC_BASE_URL"),

		REDIS_ADDR:     os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),

		CLICKHOUSE_HOST:     os.Getenv("CLICKHOUSE_HOST"),
		CLICKHOUSE_PORT:     clickhousePort,
		CLICKHOUSE_DATABASE: GetEnvOrDefault("CLICKHOUSE_DATABASE", "apiguardian"),
		CLICKHOUSE_USERNAME: GetEnvOrDefault("CLICKHOUSE_USERNAME", "default"),
		CLICKHOUSE_PASSWORD: os.Getenv("CLICKHOUSE_PASSWORD"),
		CLICKHOUSE_USE_TLS:  os.Getenv("CLICKHOUSE_USE_TLS") == "true",

		AUTH0_DOMAIN:        os.Getenv("AUTH0_DOMAIN"),
		AUTH0_CLIENT_ID:     os.Getenv("AUTH0_CLIENT_ID"),
		AUTH0_CLIENT_SECRET: os.Getenv("AUTH0_CLIENT_SECRET"),
		AUTH0_CALLBACK_URL:  os.Getenv("AUTH0_CALLBACK_URL"),
		STATE_SECRET:        os.Getenv("STATE_SECRET"),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
