// Package llm adapts language-model backends to extraction.Model.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/castlemilk/pfinance/assistant/internal/config"
	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

// New builds the model registered under name. A hosted model whose API key
// is missing yields an ErrModelCredentialsMissing error; callers then run
// without a model.
func New(ctx context.Context, name string, ms config.ModelSettings) (extraction.Model, error) {
	switch ms.Provider {
	case config.ProviderGoogle:
		return NewGemini(ctx, name, ms.ModelName, os.Getenv(ms.APIKeyEnv), "")
	case config.ProviderOllama:
		return NewOllama(name, ms.ModelName, ms.BaseURL), nil
	}
	return nil, fmt.Errorf("model %q: unsupported provider %q", name, ms.Provider)
}
