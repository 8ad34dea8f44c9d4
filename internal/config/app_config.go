package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Model providers.
const (
	ProviderGoogle = "google"
	ProviderOllama = "ollama"
)

// DefaultModel is selected when the registry names no model.
const DefaultModel = "gemini"

// ErrUnknownModel is returned when a model name is not in the registry.
var ErrUnknownModel = errors.New("unknown model")

// ModelSettings describes one registered model.
type ModelSettings struct {
	Provider  string `json:"provider"`
	ModelName string `json:"model_name"`
	APIKeyEnv string `json:"api_key_env,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
}

// AppConfig is the persisted model registry.
type AppConfig struct {
	LLMModel      string                   `json:"llm_model"`
	ModelSettings map[string]ModelSettings `json:"model_settings"`

	path string
}

// DefaultAppConfig returns the built-in registry.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		LLMModel: DefaultModel,
		ModelSettings: map[string]ModelSettings{
			"gemini": {
				Provider:  ProviderGoogle,
				ModelName: "gemini-2.0-flash",
				APIKeyEnv: "GEMINI_API_KEY",
			},
			"llama3": {
				Provider:  ProviderOllama,
				ModelName: "llama3:8b",
				BaseURL:   "http://localhost:11434",
			},
		},
	}
}

// LoadAppConfig reads the registry at path. A missing file is created with
// the defaults; entries missing from an existing file are filled from them.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read app config: %w", err)
	}

	var stored AppConfig
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse app config %s: %w", path, err)
	}
	if stored.LLMModel != "" {
		cfg.LLMModel = stored.LLMModel
	}
	for name, ms := range stored.ModelSettings {
		cfg.ModelSettings[name] = ms
	}
	return cfg, nil
}

// Save writes the registry back to the file it was loaded from.
func (a *AppConfig) Save() error {
	if a.path == "" {
		return fmt.Errorf("save app config: no path")
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal app config: %w", err)
	}
	if err := os.WriteFile(a.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write app config: %w", err)
	}
	return nil
}

// Path returns the backing file.
func (a *AppConfig) Path() string { return a.path }

// SetModel makes name the current model and saves the registry.
func (a *AppConfig) SetModel(name string) error {
	if _, ok := a.ModelSettings[name]; !ok {
		return fmt.Errorf("%w %q (available: %v)", ErrUnknownModel, name, a.Models())
	}
	a.LLMModel = name
	return a.Save()
}

// Current returns the selected model, falling back to the default entry
// when the selection is not registered.
func (a *AppConfig) Current() (string, ModelSettings) {
	return a.Resolve(a.LLMModel)
}

// Resolve returns the settings for name, or the default model's when name
// is empty or unknown.
func (a *AppConfig) Resolve(name string) (string, ModelSettings) {
	if ms, ok := a.ModelSettings[name]; ok {
		return name, ms
	}
	return DefaultModel, a.ModelSettings[DefaultModel]
}

// Models returns the registered names in order.
func (a *AppConfig) Models() []string {
	names := make([]string, 0, len(a.ModelSettings))
	for name := range a.ModelSettings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every registered model.
func (a *AppConfig) Validate() error {
	for _, name := range a.Models() {
		ms := a.ModelSettings[name]
		if ms.ModelName == "" {
			return fmt.Errorf("model %q: model_name is required", name)
		}
		switch ms.Provider {
		case ProviderGoogle:
			if ms.APIKeyEnv == "" {
				return fmt.Errorf("model %q: api_key_env is required for provider %s", name, ms.Provider)
			}
		case ProviderOllama:
			if ms.BaseURL == "" {
				return fmt.Errorf("model %q: base_url is required for provider %s", name, ms.Provider)
			}
		default:
			return fmt.Errorf("model %q: unknown provider %q", name, ms.Provider)
		}
	}
	return nil
}
