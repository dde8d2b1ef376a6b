package config

import "time"

// Config holds the application configuration
type Config struct {
	AppName       string `yaml:"app_name"`
	ProjectID     string `yaml:"project_id"`
	Location      string `yaml:"location"`
	StagingBucket string `yaml:"staging_bucket"`
	// Backend selects the model backend: "vertex" (project + location) or "gemini" (API key)
	Backend          string `yaml:"backend"`
	GoogleAPIKey     string `yaml:"google_api_key"`
	GoogleAPIKeyFile string `yaml:"google_api_key_file"`

	Search SearchConfig `yaml:"search"`
	Model  ModelConfig  `yaml:"model"`
	Agent  AgentConfig  `yaml:"agent"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// SearchConfig holds the search provider settings
type SearchConfig struct {
	APIKey       string `yaml:"api_key"`
	APIKeyFile   string `yaml:"api_key_file"`
	Endpoint     string `yaml:"endpoint"`
	DefaultQuery string `yaml:"default_query"`
}

// ModelConfig holds the generation parameters handed to the model
type ModelConfig struct {
	Name            string  `yaml:"name"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	TopP            float32 `yaml:"top_p"`
	TopK            float32 `yaml:"top_k"`
	// SafetySettings maps a harm category to a block threshold,
	// e.g. HARM_CATEGORY_HATE_SPEECH: BLOCK_ONLY_HIGH
	SafetySettings map[string]string `yaml:"safety_settings"`
}

// AgentConfig holds the agent identity, validation and deployment settings
type AgentConfig struct {
	Name            string        `yaml:"name"`
	DisplayName     string        `yaml:"display_name"`
	Description     string        `yaml:"description"`
	Instruction     string        `yaml:"instruction"`
	Requirements    []string      `yaml:"requirements"`
	ValidationQuery string        `yaml:"validation_query"`
	Refusals        []string      `yaml:"refusals"`
	Timeout         time.Duration `yaml:"timeout"`
	Deploy          bool          `yaml:"deploy"`
}

// ServerConfig holds the settings of the HTTP host serving a deployed agent
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"

	DefaultEndpoint        = "https://api.tavily.com/search"
	DefaultSearchQuery     = "where is sydney?"
	DefaultValidationQuery = "What is the weather in Sydney on 24th June 2024? Should I go to the office?"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		AppName: "search-agent",
		Backend: BackendVertex,
		Search: SearchConfig{
			Endpoint:     DefaultEndpoint,
			DefaultQuery: DefaultSearchQuery,
		},
		Model: ModelConfig{
			Name:            "gemini-2.5-flash",
			Temperature:     0.28,
			MaxOutputTokens: 1000,
			TopP:            0.95,
			TopK:            40,
			// HARM_CATEGORY_UNSPECIFIED is accepted by Validate but not set
			// by default; the API rejects thresholds on it for Gemini 2.x.
			SafetySettings: map[string]string{
				"HARM_CATEGORY_DANGEROUS_CONTENT": "BLOCK_MEDIUM_AND_ABOVE",
				"HARM_CATEGORY_HATE_SPEECH":       "BLOCK_ONLY_HIGH",
				"HARM_CATEGORY_HARASSMENT":        "BLOCK_LOW_AND_ABOVE",
				"HARM_CATEGORY_SEXUALLY_EXPLICIT": "BLOCK_NONE",
			},
		},
		Agent: AgentConfig{
			Name:        "search_agent",
			DisplayName: "test_agent2",
			Description: "Answers questions using Tavily web search.",
			Instruction: "You are a helpful assistant. Use the tavily_search tool whenever a question needs " +
				"current or factual information from the web, then answer from its results.",
			Requirements: []string{
				"google.golang.org/adk@v0.2.0",
				"google.golang.org/genai@v1.39.0",
			},
			ValidationQuery: DefaultValidationQuery,
			Timeout:         60 * time.Second,
			Deploy:          true,
		},
		Server: ServerConfig{
			Port: "8000",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Redacted returns a copy of the configuration with credentials masked,
// safe to hand to a logger.
func (c Config) Redacted() Config {
	out := c
	out.GoogleAPIKey = mask(c.GoogleAPIKey)
	out.Search.APIKey = mask(c.Search.APIKey)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
