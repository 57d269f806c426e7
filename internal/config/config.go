// Package config loads process configuration from the environment.
//
// Every service binary calls Load() once at startup. Absent optional
// variables disable the capability they gate rather than aborting startup
// so a service never aborts startup merely because a peer is unreachable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Ports is the process-wide default port map, overridable per
// service via <SERVICE>_PORT environment variables.
var Ports = map[string]int{
	"market":              9001,
	"risk":                9002,
	"execution":           9003,
	"compliance":          9004,
	"technical":           9005,
	"fundamental":         9006,
	"macro":               9007,
	"news":                9008,
	"portfolio-analytics": 9009,
	"volatility":          9010,
	"alert-engine":        9011,
	"simulation":          9012,
	"notification":        9013,
	"trader-supervisor":   9014,
	"investor-supervisor": 9015,
	"supervisor":          9000,
}

// Config is the full environment-derived configuration shared by every
// service binary. Not every field is relevant to every service; each
// service reads only the fields it needs.
type Config struct {
	ServiceName string
	Port        int
	LogLevel    string
	LogPretty   bool

	PeerURLs map[string]string

	AlertsFilePath     string
	NotificationLogDir string
	MonitorInterval    int

	DiscordWebhookURL    string
	SlackWebhookURL      string
	SlackBotToken        string
	SlackChannel         string
	NotificationWebhook  string
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPFrom             string

	FREDAPIKey   string
	NewsAPIKey   string
	OpenAIAPIKey string
	OpenAIModel  string
	OllamaHost   string
	OllamaModel  string

	ComplianceS3Bucket string
}

// Load reads .env (if present; absence is not an error) then builds a
// Config for serviceName from the environment.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	port := Ports[serviceName]
	if p := getEnvAsInt(envPortKey(serviceName), 0); p != 0 {
		port = p
	}

	peers := map[string]string{}
	for name, defaultPort := range Ports {
		peers[name] = fmt.Sprintf("http://localhost:%d/mcp", getEnvAsInt(envPortKey(name), defaultPort))
	}

	cfg := &Config{
		ServiceName:         serviceName,
		Port:                port,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPretty:           getEnvAsBool("LOG_PRETTY", false),
		PeerURLs:            peers,
		AlertsFilePath:      getEnv("ALERTS_FILE", "alerts_data.json"),
		NotificationLogDir:  getEnv("NOTIFICATION_LOG_DIR", "."),
		MonitorInterval:     getEnvAsInt("MONITOR_INTERVAL_SECONDS", 60),
		DiscordWebhookURL:   os.Getenv("DISCORD_WEBHOOK_URL"),
		SlackWebhookURL:     os.Getenv("SLACK_WEBHOOK_URL"),
		SlackBotToken:       os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:        os.Getenv("SLACK_CHANNEL"),
		NotificationWebhook: os.Getenv("NOTIFICATION_WEBHOOK_URL"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:            os.Getenv("SMTP_USER"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:            os.Getenv("SMTP_FROM"),
		FREDAPIKey:          os.Getenv("FRED_API_KEY"),
		NewsAPIKey:          os.Getenv("NEWS_API_KEY"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OllamaHost:          os.Getenv("OLLAMA_HOST"),
		OllamaModel:         os.Getenv("OLLAMA_MODEL"),
		ComplianceS3Bucket:  os.Getenv("COMPLIANCE_S3_BUCKET"),
	}

	if cfg.MonitorInterval < 10 {
		cfg.MonitorInterval = 10
	}

	return cfg, cfg.Validate()
}

// Validate checks the minimal invariants required for any service to boot.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d for service %q", c.Port, c.ServiceName)
	}
	return nil
}

func envPortKey(serviceName string) string {
	return strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_")) + "_PORT"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
