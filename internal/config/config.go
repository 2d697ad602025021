package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Farcaster / Neynar
	NeynarAPIKey  string
	NeynarBaseURL string
	SignerUUID    string
	FID           int64
	Channel       string

	// Clanker deployment
	ClankerAPIKey  string
	ClankerURL     string
	DeployTrigger  string
	DeployName     string
	DeploySymbol   string
	DeployImageURL string

	// OpenAI text generation
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Chain
	RPCURL          string
	AgentPrivateKey string
	TokenAddress    string
	NFTAddress      string
	TokenSymbol     string

	// Storage configuration
	StorageBackend   string // "file" or "azure"
	DataDir          string
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	ReportSchedule    string // "daily" or "weekly"
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Feature toggles
	EnableBroadcast      bool
	EnableCastRetirement bool
	RankingsURL          string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := fromEnv()

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFeed loads configuration for tools that only talk to the Farcaster feed
func LoadFeed() (*Config, error) {
	cfg := fromEnv()

	if err := cfg.validateFeed(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		NeynarAPIKey:  getEnv("NEYNAR_API_KEY", ""),
		NeynarBaseURL: getEnv("NEYNAR_BASE_URL", "https://api.neynar.com/v2/farcaster"),
		SignerUUID:    getEnv("FARCASTER_SIGNER_UUID", ""),
		FID:           getInt64Env("FID", 0),
		Channel:       getEnv("CHANNEL", ""),

		ClankerAPIKey:  getEnv("CLANKER_API_KEY", ""),
		ClankerURL:     getEnv("CLANKER_URL", "https://www.clanker.world/api/tokens/deploy"),
		DeployTrigger:  getEnv("DEPLOY_TRIGGER", "deploy clanker"),
		DeployName:     getEnv("DEPLOY_NAME", "Custom Clanker"),
		DeploySymbol:   getEnv("DEPLOY_SYMBOL", "CLK"),
		DeployImageURL: getEnv("DEPLOY_IMAGE_URL", "https://example.com/clanker.png"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		RPCURL:          getEnv("RPC_URL", "https://mainnet.base.org"),
		AgentPrivateKey: strings.TrimPrefix(getEnv("AGENT_PRIVATE_KEY", ""), "0x"),
		TokenAddress:    getEnv("TOKEN_ADDRESS", ""),
		NFTAddress:      getEnv("NFT_ADDRESS", ""),
		TokenSymbol:     getEnv("TOKEN_SYMBOL", "$BALD"),

		StorageBackend:   getEnv("STORAGE_BACKEND", "file"),
		DataDir:          getEnv("DATA_DIR", "data"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "caster-bot"),

		ReportSchedule:    getEnv("REPORT_SCHEDULE", "daily"),
		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		EnableBroadcast:      getBoolEnv("ENABLE_BROADCAST", true),
		EnableCastRetirement: getBoolEnv("ENABLE_CAST_RETIREMENT", false),
		RankingsURL:          getEnv("RANKINGS_URL", "rankings.mrcasterbaldman.space"),
	}
}

func (c *Config) validateFeed() error {
	if c.NeynarAPIKey == "" || c.SignerUUID == "" {
		return fmt.Errorf("NEYNAR_API_KEY and FARCASTER_SIGNER_UUID are required")
	}

	if c.FID <= 0 {
		return fmt.Errorf("FID must be a positive integer")
	}

	return nil
}

func (c *Config) validate() error {
	if err := c.validateFeed(); err != nil {
		return err
	}

	if c.AgentPrivateKey == "" {
		return fmt.Errorf("AGENT_PRIVATE_KEY is required")
	}

	if c.TokenAddress == "" || c.NFTAddress == "" {
		return fmt.Errorf("TOKEN_ADDRESS and NFT_ADDRESS are required")
	}

	if c.StorageBackend != "file" && c.StorageBackend != "azure" {
		return fmt.Errorf("STORAGE_BACKEND must be 'file' or 'azure'")
	}

	if c.StorageBackend == "azure" && c.StorageAccount == "" {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when STORAGE_BACKEND is 'azure'")
	}

	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.EnableBroadcast && c.Channel == "" {
		return fmt.Errorf("CHANNEL is required when ENABLE_BROADCAST is set")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
