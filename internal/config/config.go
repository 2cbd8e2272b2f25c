// Package config loads environment-driven configuration for the chat
// client and the development backend.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates everything both binaries need.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Completion CompletionConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	completion, err := loadCompletionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Storage:    loadStorageConfig(),
		Completion: completion,
	}, nil
}

// ServerConfig describes the development backend.
type ServerConfig struct {
	Addr   string
	DBPath string
	Token  string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	return ServerConfig{
		Addr:   addr,
		DBPath: getEnvOrDefault("CHAT_DB_PATH", "data/chat.db"),
		Token:  strings.TrimSpace(os.Getenv("CHAT_API_TOKEN")),
	}, nil
}

// StorageConfig describes the chat-storage service the client talks
// to.
type StorageConfig struct {
	BaseURL  string
	Token    string
	WatchURL string
	Timeout  time.Duration
}

func loadStorageConfig() StorageConfig {
	baseURL := getEnvOrDefault("CHAT_API_BASE_URL", "http://localhost:8080")

	watchURL := strings.TrimSpace(os.Getenv("CHAT_API_WATCH_URL"))
	if watchURL == "" {
		watchURL = deriveWatchURL(baseURL)
	}

	timeout := 30 * time.Second
	if secs, err := parseOptionalIntEnv("CHAT_API_TIMEOUT"); err == nil && secs != nil && *secs > 0 {
		timeout = time.Duration(*secs) * time.Second
	}

	return StorageConfig{
		BaseURL:  baseURL,
		Token:    strings.TrimSpace(os.Getenv("CHAT_API_TOKEN")),
		WatchURL: watchURL,
		Timeout:  timeout,
	}
}

func deriveWatchURL(baseURL string) string {
	ws := baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimRight(ws, "/") + "/api/v1/aiChat/watch"
}

// CompletionConfig selects and configures the generative provider.
type CompletionConfig struct {
	Provider string // "gemini" or "ark"

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	Timeout       time.Duration

	Ark ArkConfig
}

// ArkConfig carries the eino Ark model settings.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required Ark credentials are present.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an eino ChatModel from the Ark settings.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadCompletionConfig() (CompletionConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return CompletionConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return CompletionConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return CompletionConfig{}, err
	}

	timeout := 60 * time.Second
	if secs, err := parseOptionalIntEnv("COMPLETION_TIMEOUT"); err != nil {
		return CompletionConfig{}, err
	} else if secs != nil && *secs > 0 {
		timeout = time.Duration(*secs) * time.Second
	}

	provider := strings.ToLower(getEnvOrDefault("COMPLETION_PROVIDER", "gemini"))
	if provider != "gemini" && provider != "ark" {
		return CompletionConfig{}, fmt.Errorf("invalid COMPLETION_PROVIDER value: %q", provider)
	}

	return CompletionConfig{
		Provider:      provider,
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		Timeout:       timeout,
		Ark: ArkConfig{
			APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
		},
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
