package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"helios-backend/ai"
	"helios-backend/metrics"
	"helios-backend/models"

	"go.uber.org/zap"
)

const (
	DefaultCallTimeout = 45 * time.Second
	DefaultBackoffBase = time.Second
	DefaultBackoffMax  = 5 * time.Second
	DefaultTemperature = 0.2

	// maxChainLength is the primary model plus three alternates.
	maxChainLength = 4
)

// EngineConfig is the read-only configuration of an AnalysisEngine.
type EngineConfig struct {
	// FallbackModels are tried in order after the primary model.
	FallbackModels []string
	CallTimeout    time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	Temperature    float32
	// RetryOnParseError lets an unparseable response advance the chain
	// instead of failing the analysis.
	RetryOnParseError bool
}

// DefaultEngineConfig returns the production timings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CallTimeout: DefaultCallTimeout,
		BackoffBase: DefaultBackoffBase,
		BackoffMax:  DefaultBackoffMax,
		Temperature: DefaultTemperature,
	}
}

// AnalysisEngine runs the prompt through the model fallback chain.
type AnalysisEngine struct {
	generator ai.Generator
	cfg       EngineConfig
	validator *SchemaValidator
	sleep     Sleeper
	log       *zap.Logger
}

// EngineOption is a functional option for AnalysisEngine
type EngineOption func(*AnalysisEngine)

// EngineWithConfig sets the chain configuration
func EngineWithConfig(cfg EngineConfig) EngineOption {
	return func(e *AnalysisEngine) {
		e.cfg = cfg
	}
}

// EngineWithSchemaValidator enables schema diagnostics on raw output
func EngineWithSchemaValidator(v *SchemaValidator) EngineOption {
	return func(e *AnalysisEngine) {
		e.validator = v
	}
}

// EngineWithSleeper replaces the backoff sleeper
func EngineWithSleeper(s Sleeper) EngineOption {
	return func(e *AnalysisEngine) {
		e.sleep = s
	}
}

// EngineWithLogger sets the logger
func EngineWithLogger(log *zap.Logger) EngineOption {
	return func(e *AnalysisEngine) {
		e.log = log
	}
}

// NewAnalysisEngine creates an engine calling generator.
func NewAnalysisEngine(generator ai.Generator, opts ...EngineOption) *AnalysisEngine {
	e := &AnalysisEngine{
		generator: generator,
		cfg:       DefaultEngineConfig(),
		sleep:     ContextSleep,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.CallTimeout <= 0 {
		e.cfg.CallTimeout = DefaultCallTimeout
	}
	if e.cfg.BackoffBase <= 0 {
		e.cfg.BackoffBase = DefaultBackoffBase
	}
	if e.cfg.BackoffMax <= 0 {
		e.cfg.BackoffMax = DefaultBackoffMax
	}
	return e
}

// AnalysisOutcome is the successful result of a chain run.
type AnalysisOutcome struct {
	Raw      map[string]any
	Model    string
	Provider string
	Attempts []models.AnalysisAttempt
	// SchemaIssues describes how Raw deviates from the requested shape.
	SchemaIssues string
}

// Chain returns the ordered model list for a primary model.
func (e *AnalysisEngine) Chain(primary string) []string {
	chain := make([]string, 0, maxChainLength)
	seen := make(map[string]bool)
	for _, m := range append([]string{primary}, e.cfg.FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
		if len(chain) == maxChainLength {
			break
		}
	}
	return chain
}

type attemptKind int

const (
	attemptOK attemptKind = iota
	attemptRetryable
	attemptFatal
)

// attemptResult is the outcome of one model call.
type attemptResult struct {
	kind    attemptKind
	outcome models.AttemptOutcome
	raw     map[string]any
	err     error
}

// Analyze runs req through the fallback chain. Models are tried strictly in
// sequence and the first parsed response wins.
func (e *AnalysisEngine) Analyze(ctx context.Context, req models.AnalysisRequest) (*AnalysisOutcome, error) {
	if e.generator == nil {
		return nil, ErrGeneratorNotSet
	}
	chain := e.Chain(req.ModelID)
	if len(chain) == 0 {
		return nil, &AnalysisError{Err: ErrNoModels}
	}

	prompt := BuildPrompt(req)
	attempts := make([]models.AnalysisAttempt, 0, len(chain))

	for i, model := range chain {
		if err := ctx.Err(); err != nil {
			return nil, &AnalysisError{Attempts: attempts, Err: err}
		}

		e.log.Info("analysis.attempt.start",
			zap.String("model", model),
			zap.Int("attempt", i+1),
			zap.Int("chain_length", len(chain)),
			zap.Int("prompt_chars", len(prompt)),
		)

		start := time.Now()
		res := e.attempt(ctx, prompt, model)
		elapsed := time.Since(start)

		attempts = append(attempts, models.AnalysisAttempt{
			Model:      model,
			Outcome:    res.outcome,
			Error:      errString(res.err),
			DurationMS: elapsed.Milliseconds(),
		})
		metrics.AIAttempts.WithLabelValues(model, string(res.outcome)).Inc()
		metrics.AIAttemptDuration.WithLabelValues(model).Observe(elapsed.Seconds())

		if res.kind == attemptOK {
			e.log.Info("analysis.attempt.succeeded",
				zap.String("model", model),
				zap.Duration("elapsed", elapsed),
			)
			return &AnalysisOutcome{
				Raw:          res.raw,
				Model:        model,
				Provider:     ai.ProviderOf(e.generator, model),
				Attempts:     attempts,
				SchemaIssues: e.schemaIssues(model, res.raw),
			}, nil
		}

		last := i == len(chain)-1
		e.log.Warn("analysis.attempt.failed",
			zap.String("model", model),
			zap.String("outcome", string(res.outcome)),
			zap.Bool("retryable", res.kind == attemptRetryable),
			zap.Bool("last", last),
			zap.Error(res.err),
		)
		if res.kind == attemptFatal || last {
			return nil, &AnalysisError{Attempts: attempts, Err: res.err}
		}

		delay := BackoffDelay(i, e.cfg.BackoffBase, e.cfg.BackoffMax)
		attempts[len(attempts)-1].BackoffMS = delay.Milliseconds()
		metrics.AIFallbacks.Inc()
		if err := e.sleep(ctx, delay); err != nil {
			return nil, &AnalysisError{Attempts: attempts, Err: err}
		}
	}

	// unreachable: the last iteration always returns
	return nil, &AnalysisError{Attempts: attempts, Err: ErrNoModels}
}

func (e *AnalysisEngine) attempt(ctx context.Context, prompt, model string) attemptResult {
	text, err := e.callWithTimeout(ctx, prompt, model)
	if err != nil {
		switch {
		case errors.Is(err, ErrModelTimeout):
			return attemptResult{kind: attemptRetryable, outcome: models.AttemptTimedOut, err: err}
		case ctx.Err() != nil:
			return attemptResult{kind: attemptFatal, outcome: models.AttemptFatal, err: err}
		case IsRetryableError(err):
			return attemptResult{kind: attemptRetryable, outcome: models.AttemptRetryable, err: err}
		default:
			return attemptResult{kind: attemptFatal, outcome: models.AttemptFatal, err: err}
		}
	}

	raw, err := ParseModelJSON(text)
	if err != nil {
		kind := attemptFatal
		if e.cfg.RetryOnParseError {
			kind = attemptRetryable
		}
		return attemptResult{kind: kind, outcome: models.AttemptParseError, err: err}
	}
	return attemptResult{kind: attemptOK, outcome: models.AttemptSucceeded, raw: raw}
}

type callResult struct {
	text string
	err  error
}

// callWithTimeout races the generation call against the per-call timer. A
// response arriving after the timer fires is dropped.
func (e *AnalysisEngine) callWithTimeout(ctx context.Context, prompt, model string) (string, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so a late sender never blocks after we stop listening.
	done := make(chan callResult, 1)
	go func() {
		text, err := e.generator.Generate(callCtx, prompt, model, ai.GenerateOptions{
			JSON:        true,
			Temperature: e.cfg.Temperature,
		})
		done <- callResult{text: text, err: err}
	}()

	timer := time.NewTimer(e.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.text, r.err
	case <-timer.C:
		return "", fmt.Errorf("%w: %s did not answer within %s", ErrModelTimeout, model, e.cfg.CallTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *AnalysisEngine) schemaIssues(model string, raw map[string]any) string {
	if e.validator == nil {
		return ""
	}
	if err := e.validator.Validate(raw); err != nil {
		e.log.Warn("analysis.schema.mismatch", zap.String("model", model), zap.Error(err))
		return err.Error()
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
