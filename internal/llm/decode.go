package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

var (
	schemaMu    sync.Mutex
	schemaCache = map[extraction.SchemaKind]*jsonschema.Schema{}
)

// compiledSchema returns the compiled validator for kind, compiling the
// schema map on first use.
func compiledSchema(kind extraction.SchemaKind, schemaMap map[string]any) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if s, ok := schemaCache[kind]; ok {
		return s, nil
	}

	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := string(kind) + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schemaCache[kind] = s
	return s, nil
}

// decodeAnswer validates a raw model answer against the request schema and
// decodes it into out. Every failure is MODEL_MALFORMED_OUTPUT.
func decodeAnswer(method, raw string, req extraction.Request, out extraction.Result) error {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return malformed(method, "empty response from model", nil)
	}

	var v any
	if err := json.Unmarshal([]byte(clean), &v); err != nil {
		return malformed(method, "response is not JSON", err)
	}

	if req.Schema != nil {
		schema, err := compiledSchema(req.Kind, req.Schema)
		if err != nil {
			return malformed(method, "invalid schema", err)
		}
		if err := schema.Validate(v); err != nil {
			return malformed(method, "response does not match schema", err)
		}
	}

	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return malformed(method, "decode response", err)
	}
	return nil
}

// cleanModelJSON strips markdown fences and any prose around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

// userPrompt embeds the schema in the message so backends without native
// schema support still see it.
func userPrompt(req extraction.Request) string {
	var b strings.Builder
	if req.Schema != nil {
		schema, _ := json.Marshal(req.Schema)
		b.WriteString("JSON Schema:\n")
		b.Write(schema)
		b.WriteString("\n\n")
	}
	b.WriteString("Câu chat: ")
	b.WriteString(req.Message)
	return b.String()
}
