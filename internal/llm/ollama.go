package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

// Ollama is a local model served by an Ollama daemon.
type Ollama struct {
	name       string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOllama creates a client for model at baseURL. Deadlines come from the
// caller's context.
func NewOllama(name, model, baseURL string) *Ollama {
	return &Ollama{
		name:       name,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

func (o *Ollama) Name() string                { return o.name }
func (o *Ollama) Backend() extraction.Backend { return extraction.BackendLocal }

// Probe checks that the daemon is up and has the model pulled.
func (o *Ollama) Probe(ctx context.Context) error {
	const method = "Ollama.Probe"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return transportError(method, fmt.Errorf("create request: %w", err))
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return transportError(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return statusError(method, resp.StatusCode, string(body))
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return transportError(method, fmt.Errorf("decode tags: %w", err))
	}
	for _, m := range tags.Models {
		if m.Name == o.model || m.Model == o.model {
			return nil
		}
	}
	return extraction.NewModelError(extraction.ErrModelUnavailable, method,
		fmt.Sprintf("model %s is not pulled", o.model), nil)
}

// Invoke runs one non-streaming chat with the schema as the output format.
func (o *Ollama) Invoke(ctx context.Context, req extraction.Request, out extraction.Result) error {
	const method = "Ollama.Invoke"

	payload := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.Instructions},
			{Role: "user", Content: userPrompt(req)},
		},
		Stream:  false,
		Options: map[string]any{"temperature": 0.1},
	}
	if req.Schema != nil {
		payload.Format = req.Schema
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return transportError(method, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return transportError(method, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return transportError(method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(method, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(method, resp.StatusCode, string(respBody))
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return malformed(method, "decode chat response", err)
	}
	if chat.Error != "" {
		return extraction.NewModelError(extraction.ErrModelUnavailable, method, chat.Error, nil)
	}
	return decodeAnswer(method, chat.Message.Content, req, out)
}
