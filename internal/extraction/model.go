package extraction

//go:generate mockgen -source=model.go -destination=model_mock.go -package=extraction

import "context"

// Backend tells the orchestrator how long to wait for a model.
type Backend string

const (
	BackendHosted Backend = "hosted"
	BackendLocal  Backend = "local"
)

// Request is one structured-output call.
type Request struct {
	Kind         SchemaKind
	Instructions string
	Message      string
	Schema       map[string]any
}

// Model is a language-model backend able to fill a Result from a message.
//
// Invoke must decode into out only when the answer satisfies Schema, and
// must report failures as *ExtractionError: an unavailable-family code when
// the backend cannot be reached or refuses service, ErrModelMalformedOutput
// when it answered with something unusable. Invoke does not retry.
type Model interface {
	Name() string
	Backend() Backend
	Probe(ctx context.Context) error
	Invoke(ctx context.Context, req Request, out Result) error
}
