package extraction

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Default deadlines for model calls.
const (
	DefaultHostedTimeout = 5 * time.Second
	DefaultLocalTimeout  = 15 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

// State is the lifecycle of an ExtractionService.
type State int32

const (
	StateUninitialized State = iota
	StateProbing
	StateModelActive
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateProbing:
		return "PROBING"
	case StateModelActive:
		return "MODEL_ACTIVE"
	case StateDegraded:
		return "DEGRADED"
	}
	return "UNKNOWN"
}

// ExtractionService turns messages into typed results, asking the model
// first and falling back to keyword rules. Model errors never escape it.
type ExtractionService struct {
	model        Model
	availability *Availability
	timeout      time.Duration
	state        atomic.Int32
	logger       zerolog.Logger
}

// Config holds configuration for the extraction service.
type Config struct {
	// Model may be nil, in which case only the rule-based path is used.
	Model Model
	// Availability is shared by every service in the process. The process
	// default is used when nil.
	Availability  *Availability
	HostedTimeout time.Duration
	LocalTimeout  time.Duration
	ProbeTimeout  time.Duration
	Logger        *zerolog.Logger
}

// NewExtractionService creates the service and probes the model once.
// A failed probe leaves the service degraded and demotes the shared
// availability flag.
func NewExtractionService(ctx context.Context, cfg Config) *ExtractionService {
	s := &ExtractionService{
		model:        cfg.Model,
		availability: cfg.Availability,
		logger:       zerolog.Nop(),
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With().Str("component", "extraction").Logger()
	}
	if s.availability == nil {
		s.availability = defaultAvailability
	}
	s.state.Store(int32(StateUninitialized))

	if s.model == nil {
		s.logger.Info().Msg("no model configured, using rule-based extraction")
		s.state.Store(int32(StateDegraded))
		return s
	}

	s.logger = s.logger.With().Str("model", s.model.Name()).Logger()
	s.timeout = durationOr(cfg.HostedTimeout, DefaultHostedTimeout)
	if s.model.Backend() == BackendLocal {
		s.timeout = durationOr(cfg.LocalTimeout, DefaultLocalTimeout)
	}

	if !s.availability.Available() {
		s.logger.Info().Msg("model already marked unavailable, skipping probe")
		s.state.Store(int32(StateDegraded))
		return s
	}

	s.state.Store(int32(StateProbing))
	probeCtx, cancel := context.WithTimeout(ctx, durationOr(cfg.ProbeTimeout, DefaultProbeTimeout))
	defer cancel()
	if err := s.model.Probe(probeCtx); err != nil {
		s.logger.Warn().Err(err).Msg("model probe failed, switching to offline mode")
		s.availability.Demote()
		s.state.Store(int32(StateDegraded))
		return s
	}

	s.logger.Info().Dur("timeout", s.timeout).Msg("model ready")
	s.state.Store(int32(StateModelActive))
	return s
}

// State reports the effective state: an active service becomes degraded as
// soon as any service in the process demotes the shared flag.
func (s *ExtractionService) State() State {
	st := State(s.state.Load())
	if st == StateModelActive && !s.availability.Available() {
		return StateDegraded
	}
	return st
}

// ModelName returns the configured model name, or "" when there is none.
func (s *ExtractionService) ModelName() string {
	if s.model == nil {
		return ""
	}
	return s.model.Name()
}

// ClassifyIntent decides what the user wants.
func (s *ExtractionService) ClassifyIntent(ctx context.Context, message string) *IntentClassification {
	return extract(ctx, s, KindIntent, message, FallbackIntent)
}

// ExtractExpense reads one expense or income entry.
func (s *ExtractionService) ExtractExpense(ctx context.Context, message string) *ExpenseFields {
	return extract(ctx, s, KindExpense, message, FallbackExpense)
}

// ExtractDelete reads which transaction to delete.
func (s *ExtractionService) ExtractDelete(ctx context.Context, message string) *DeleteCriteria {
	return extract(ctx, s, KindDelete, message, FallbackDelete)
}

// ExtractBalance reads a balance set or adjustment.
func (s *ExtractionService) ExtractBalance(ctx context.Context, message string) *BalanceUpdate {
	return extract(ctx, s, KindBalance, message, FallbackBalance)
}

// ExtractStatistics reads the requested reporting window.
func (s *ExtractionService) ExtractStatistics(ctx context.Context, message string) *StatisticsRequest {
	return extract(ctx, s, KindStatistics, message, FallbackStatistics)
}

func extract[T Result](ctx context.Context, s *ExtractionService, kind SchemaKind, message string, fallback func(string) T) T {
	if s.State() == StateModelActive {
		out := NewResult(kind).(T)
		err := s.invoke(ctx, kind, message, out)
		if err == nil {
			repairResult(out, message)
			markModel(out.meta())
			return out
		}
		s.handleModelError(kind, err)
	}
	return fallback(message)
}

// invoke runs the model call under the service deadline. A call that
// outlives the deadline is abandoned and reported as a timeout, even if the
// backend ignores ctx and answers later.
func (s *ExtractionService) invoke(ctx context.Context, kind SchemaKind, message string, out Result) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := Request{
		Kind:         kind,
		Instructions: Instructions(kind),
		Message:      message,
		Schema:       JSONSchema(kind),
	}
	// The backend decodes into its own value so an abandoned call never
	// writes to out.
	answer := NewResult(kind)
	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- s.model.Invoke(callCtx, req, answer)
	}()

	var err error
	select {
	case err = <-done:
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	s.logger.Debug().Str("kind", string(kind)).Dur("elapsed", time.Since(start)).Err(err).Msg("model call")

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var extErr *ExtractionError
		if err == nil || !errors.As(err, &extErr) || !extErr.Code.Unavailable() {
			return NewModelError(ErrModelTimeout, s.model.Name(), "model call exceeded deadline", err)
		}
	}
	if err != nil {
		return err
	}
	copyResult(out, answer)
	return nil
}

func (s *ExtractionService) handleModelError(kind SchemaKind, err error) {
	if IsMalformedOutput(err) {
		s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("model output rejected, using rules for this message")
		return
	}
	// Anything else, including unclassified errors, stops further model calls.
	if s.availability.Demote() {
		s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("model unavailable, switching to offline mode")
	}
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
