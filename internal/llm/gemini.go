package llm

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

// Gemini is a hosted model reached through the Gemini API.
type Gemini struct {
	name   string
	model  string
	client *genai.Client
}

// NewGemini creates a Gemini client. baseURL is only set in tests.
func NewGemini(ctx context.Context, name, model, apiKey, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, extraction.NewModelError(extraction.ErrModelCredentialsMissing, "NewGemini", "API key is not set", nil)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, extraction.NewModelError(extraction.ErrModelUnavailable, "NewGemini", "create genai client", err)
	}
	return &Gemini{name: name, model: model, client: client}, nil
}

func (g *Gemini) Name() string                { return g.name }
func (g *Gemini) Backend() extraction.Backend { return extraction.BackendHosted }

// Probe fetches the model metadata, which fails fast on a bad key or an
// unknown model.
func (g *Gemini) Probe(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return geminiError("Gemini.Probe", err)
	}
	return nil
}

// Invoke asks for a JSON answer and validates it against the schema.
func (g *Gemini) Invoke(ctx context.Context, req extraction.Request, out extraction.Result) error {
	const method = "Gemini.Invoke"

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Instructions, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
		ResponseMIMEType:  "application/json",
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt(req)), config)
	if err != nil {
		return geminiError(method, err)
	}
	return decodeAnswer(method, resp.Text(), req, out)
}

// geminiError maps SDK errors onto extraction codes.
func geminiError(method string, err error) error {
	code, ok := apiErrorCode(err)
	if !ok {
		return transportError(method, err)
	}
	return statusError(method, code, err.Error())
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return http.StatusOK, false
}
