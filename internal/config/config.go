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

// Config aggregates every runtime setting of the service.
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Engine     EngineConfig
	Docs       DocsConfig
	Transcript TranscriptConfig
	Calendar   CalendarConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	engine, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}

	docs, err := loadDocsConfig()
	if err != nil {
		return nil, err
	}

	transcript, err := loadTranscriptConfig()
	if err != nil {
		return nil, err
	}

	calendar, err := loadCalendarConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		AI:         ai,
		Engine:     engine,
		Docs:       docs,
		Transcript: transcript,
		Calendar:   calendar,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig holds the LLM credentials and sampling settings.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("missing Ark credentials, set ARK_API_KEY + ARK_MODEL or the AK/SK pair")
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

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
	}, nil
}

// EngineConfig tunes the conversation engine.
type EngineConfig struct {
	RatingThreshold     int
	CallSuggestionTurn  int
	HistoryLimit        int
	CollaboratorTimeout time.Duration
}

func loadEngineConfig() (EngineConfig, error) {
	cfg := EngineConfig{
		RatingThreshold:     10,
		CallSuggestionTurn:  6,
		HistoryLimit:        5,
		CollaboratorTimeout: 30 * time.Second,
	}

	if v, err := parseOptionalIntEnv("CHAT_RATING_THRESHOLD"); err != nil {
		return EngineConfig{}, err
	} else if v != nil {
		cfg.RatingThreshold = *v
	}

	if v, err := parseOptionalIntEnv("CHAT_CALL_SUGGESTION_TURN"); err != nil {
		return EngineConfig{}, err
	} else if v != nil {
		cfg.CallSuggestionTurn = *v
	}

	if v, err := parseOptionalIntEnv("CHAT_HISTORY_LIMIT"); err != nil {
		return EngineConfig{}, err
	} else if v != nil {
		cfg.HistoryLimit = *v
	}

	if v, err := parseOptionalIntEnv("CHAT_COLLABORATOR_TIMEOUT_SECONDS"); err != nil {
		return EngineConfig{}, err
	} else if v != nil {
		cfg.CollaboratorTimeout = time.Duration(*v) * time.Second
	}

	return cfg, nil
}

// DocsConfig points at the knowledge base directory.
type DocsConfig struct {
	Dir   string
	Watch bool
}

func loadDocsConfig() (DocsConfig, error) {
	watch, err := parseBoolEnv("DOCUMENTS_WATCH", true)
	if err != nil {
		return DocsConfig{}, err
	}

	return DocsConfig{
		Dir:   getEnvOrDefault("DOCUMENTS_DIR", "documents"),
		Watch: watch,
	}, nil
}

// TranscriptConfig selects and tunes the transcript store.
type TranscriptConfig struct {
	Backend string
	Path    string
	Strict  bool
}

func loadTranscriptConfig() (TranscriptConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("TRANSCRIPT_BACKEND", "csv"))
	if backend != "csv" && backend != "sqlite" {
		return TranscriptConfig{}, fmt.Errorf("invalid TRANSCRIPT_BACKEND %q, expected csv or sqlite", backend)
	}

	defaultPath := "logs/detailed_chat_history.csv"
	if backend == "sqlite" {
		defaultPath = "logs/chat_history.db"
	}

	strict, err := parseBoolEnv("TRANSCRIPT_STRICT", false)
	if err != nil {
		return TranscriptConfig{}, err
	}

	return TranscriptConfig{
		Backend: backend,
		Path:    getEnvOrDefault("TRANSCRIPT_PATH", defaultPath),
		Strict:  strict,
	}, nil
}

// CalendarConfig holds the Google Calendar integration settings.
type CalendarConfig struct {
	CredentialsFile string
	TokenFile       string
	CalendarID      string
	AttendeeEmail   string
	Timezone        string
}

// Enabled reports whether the OAuth credentials file is available.
func (c CalendarConfig) Enabled() bool {
	if c.CredentialsFile == "" {
		return false
	}
	_, err := os.Stat(c.CredentialsFile)
	return err == nil
}

func loadCalendarConfig() (CalendarConfig, error) {
	return CalendarConfig{
		CredentialsFile: getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       getEnvOrDefault("GOOGLE_TOKEN_FILE", "token.json"),
		CalendarID:      getEnvOrDefault("CALENDAR_ID", "primary"),
		AttendeeEmail:   strings.TrimSpace(os.Getenv("CALENDAR_ATTENDEE_EMAIL")),
		Timezone:        getEnvOrDefault("CALENDAR_TIMEZONE", "America/New_York"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
