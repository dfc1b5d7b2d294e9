package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	LogLevel        string
	StoreBackend    string
	DatabaseURL     string
	MongoURI        string
	MongoDatabase   string
	SQLitePath      string
	RedisURL        string
	NatsURL         string
	NatsToken       string
	AnthropicAPIKey string
	AnthropicModel  string
	SlackBotToken   string
	SlackChannel    string
	APIToken        string
	PolicyFile      string
	AlertThreshold  int
}

func Load() Config {
	return Config{
		Port:            envInt("VIGIL_PORT", 8760),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		StoreBackend:    envStr("STORE_BACKEND", "postgres"),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		MongoURI:        envStr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   envStr("MONGO_DATABASE", "vigil"),
		SQLitePath:      envStr("SQLITE_PATH", "vigil.db"),
		RedisURL:        envStr("REDIS_URL", ""),
		NatsURL:         envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("VIGIL_MODEL", "claude-sonnet-4-20250514"),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_ALERT_CHANNEL", ""),
		APIToken:        envStr("VIGIL_API_TOKEN", ""),
		PolicyFile:      envStr("VIGIL_POLICY_FILE", ""),
		AlertThreshold:  envInt("ALERT_THRESHOLD", 60),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
