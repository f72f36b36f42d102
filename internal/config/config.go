// Package config provides environment configuration for the widget host.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultChatAPIURL is the remote text-understanding endpoint used when
// CHAT_API_URL is unset.
const DefaultChatAPIURL = "https://chatbot-assistant-main.onrender.com/chat"

// DefaultGreeting is the bot message every new conversation starts with.
const DefaultGreeting = "Hello! I'm your AI assistant. How can I help you today?"

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Remote chat endpoint
	ChatAPIURL     string
	ChatAPITimeout time.Duration

	// Widget settings
	Greeting             string
	SessionSecret        string
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration
	CORSAllowedOrigins   []string

	// NATS settings, empty URL disables event publishing
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Logging
	LogLevel string
	LogFile  string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads an optional .env file and then configuration from environment
// variables. Variables already set in the environment win over .env entries.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),

		// Chat API
		ChatAPIURL:     getEnv("CHAT_API_URL", DefaultChatAPIURL),
		ChatAPITimeout: getDurationEnv("CHAT_API_TIMEOUT", 30*time.Second),

		// Widget
		Greeting:             getEnvAllowEmpty("WIDGET_GREETING", DefaultGreeting),
		SessionSecret:        getEnv("WIDGET_SESSION_SECRET", "development-secret-change-in-production"),
		SessionIdleTimeout:   getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionSweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", time.Minute),
		CORSAllowedOrigins:   getListEnv("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"}),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes "unset" from "set to empty" so an operator
// can disable the greeting with WIDGET_GREETING=.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
