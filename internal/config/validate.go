package config

import (
	"errors"
	"fmt"
	"strconv"
)

// HarmCategories lists the harm categories accepted in model.safety_settings.
var HarmCategories = map[string]bool{
	"HARM_CATEGORY_UNSPECIFIED":       true,
	"HARM_CATEGORY_HATE_SPEECH":       true,
	"HARM_CATEGORY_DANGEROUS_CONTENT": true,
	"HARM_CATEGORY_HARASSMENT":        true,
	"HARM_CATEGORY_SEXUALLY_EXPLICIT": true,
	"HARM_CATEGORY_CIVIC_INTEGRITY":   true,
}

// HarmBlockThresholds lists the block thresholds accepted in model.safety_settings.
var HarmBlockThresholds = map[string]bool{
	"HARM_BLOCK_THRESHOLD_UNSPECIFIED": true,
	"BLOCK_LOW_AND_ABOVE":              true,
	"BLOCK_MEDIUM_AND_ABOVE":           true,
	"BLOCK_ONLY_HIGH":                  true,
	"BLOCK_NONE":                       true,
	"OFF":                              true,
}

// Validate checks the structure of the configuration. It does not require
// credentials or cloud identifiers to be set.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendVertex, BackendGemini:
	default:
		errs = append(errs, fmt.Errorf("backend: unknown value %q (want %q or %q)", c.Backend, BackendVertex, BackendGemini))
	}

	if c.Search.Endpoint == "" {
		errs = append(errs, errors.New("search.endpoint is required"))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature: %v out of range [0, 2]", c.Model.Temperature))
	}
	if c.Model.TopP < 0 || c.Model.TopP > 1 {
		errs = append(errs, fmt.Errorf("model.top_p: %v out of range [0, 1]", c.Model.TopP))
	}
	if c.Model.TopK < 0 {
		errs = append(errs, fmt.Errorf("model.top_k: %v must not be negative", c.Model.TopK))
	}
	if c.Model.MaxOutputTokens < 0 {
		errs = append(errs, fmt.Errorf("model.max_output_tokens: %d must not be negative", c.Model.MaxOutputTokens))
	}
	for category, threshold := range c.Model.SafetySettings {
		if !HarmCategories[category] {
			errs = append(errs, fmt.Errorf("model.safety_settings: unknown harm category %q", category))
		}
		if !HarmBlockThresholds[threshold] {
			errs = append(errs, fmt.Errorf("model.safety_settings[%s]: unknown threshold %q", category, threshold))
		}
	}

	if c.Agent.Name == "" {
		errs = append(errs, errors.New("agent.name is required"))
	}
	if c.Agent.Timeout <= 0 {
		errs = append(errs, errors.New("agent.timeout must be positive"))
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: invalid value %q", c.Server.Port))
	}

	return errors.Join(errs...)
}
