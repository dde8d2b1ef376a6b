package agent

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"search-agent/internal/config"
	"search-agent/internal/tools"
)

// NewModel creates the Gemini model the agent reasons with. The Vertex AI
// backend uses the configured project and location; the Gemini API backend
// uses the API key.
func NewModel(ctx context.Context, cfg *config.Config) (model.LLM, error) {
	cc := &genai.ClientConfig{}
	switch cfg.Backend {
	case config.BackendGemini:
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.GoogleAPIKey
	default:
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.ProjectID
		cc.Location = cfg.Location
	}

	llm, err := gemini.NewModel(ctx, cfg.Model.Name, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create model %s: %w", cfg.Model.Name, err)
	}
	return llm, nil
}

// GenerateConfig maps the model options onto a generation config. Safety
// settings are emitted in category order.
func GenerateConfig(mc config.ModelConfig) (*genai.GenerateContentConfig, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(mc.Temperature),
		TopP:            genai.Ptr(mc.TopP),
		TopK:            genai.Ptr(mc.TopK),
		MaxOutputTokens: mc.MaxOutputTokens,
	}

	categories := make([]string, 0, len(mc.SafetySettings))
	for c := range mc.SafetySettings {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, c := range categories {
		threshold := mc.SafetySettings[c]
		if !config.HarmCategories[c] {
			return nil, fmt.Errorf("unknown harm category %q", c)
		}
		if !config.HarmBlockThresholds[threshold] {
			return nil, fmt.Errorf("unknown threshold %q for %s", threshold, c)
		}
		gc.SafetySettings = append(gc.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(c),
			Threshold: genai.HarmBlockThreshold(threshold),
		})
	}
	return gc, nil
}

// New assembles the tool-using agent from the model, the registered
// capabilities and the configured model options.
func New(cfg *config.Config, llm model.LLM, registry *tools.Registry) (agent.Agent, error) {
	gc, err := GenerateConfig(cfg.Model)
	if err != nil {
		return nil, err
	}

	adkTools, err := registry.ADKTools()
	if err != nil {
		return nil, err
	}

	a, err := llmagent.New(llmagent.Config{
		Name:                  cfg.Agent.Name,
		Model:                 llm,
		Description:           cfg.Agent.Description,
		Instruction:           cfg.Agent.Instruction,
		Tools:                 adkTools,
		GenerateContentConfig: gc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return a, nil
}
