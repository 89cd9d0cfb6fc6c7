package docforge

import (
	"log/slog"
	"time"
)

// Observer receives timing and outcome information for engine operations.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRender(d time.Duration, err error)
	ObserveCondition(d time.Duration, err error)
	ObserveValidate(d time.Duration, valid bool)
}

type nopObserver struct{}

func (nopObserver) ObserveRender(time.Duration, error)    {}
func (nopObserver) ObserveCondition(time.Duration, error) {}
func (nopObserver) ObserveValidate(time.Duration, bool)   {}

// Engine provides the main API for rendering, evaluating and validating.
// Use New() to create a new engine instance. An Engine holds no per-call
// state and may be shared between goroutines.
type Engine struct {
	config   *Config
	logger   *slog.Logger
	observer Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver attaches an Observer, for example the Prometheus metrics.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// New creates a new engine with the global configuration.
func New(opts ...Option) *Engine {
	return NewWithConfig(GetGlobalConfig(), opts...)
}

// NewWithConfig creates a new engine with custom configuration. Unset
// fields take their defaults.
func NewWithConfig(config *Config, opts ...Option) *Engine {
	e := &Engine{
		config:   NewConfigWithDefaults(config),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = GetLogger()
	}
	return e
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	c := *e.config
	return &c
}

func (e *Engine) parseOptions() parseOptions {
	return parseOptions{
		maxDepth:   e.config.MaxDepth,
		trimBlocks: e.config.TrimBlocks,
		logger:     e.logger,
	}
}

// Render renders template against ctx.
func (e *Engine) Render(template string, ctx Context) (result *RenderResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, RecoverError(r)
		}
		if err != nil {
			e.logger.Warn("render failed", "error", err)
		}
		e.observer.ObserveRender(time.Since(start), err)
	}()

	return renderTemplate(template, ctx, renderOptions{
		parseOptions: e.parseOptions(),
		placeholder:  e.config.UnresolvedPlaceholder,
		maxIncludes:  e.config.MaxIncludes,
	})
}

// RenderMap renders template against native Go data.
func (e *Engine) RenderMap(template string, data map[string]any) (*RenderResult, error) {
	return e.Render(template, ContextOf(data))
}

// EvaluateCondition evaluates cond against ctx and explains the result.
func (e *Engine) EvaluateCondition(cond string, ctx Context) (result *ConditionResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, RecoverError(r)
		}
		e.observer.ObserveCondition(time.Since(start), err)
	}()

	result, err = explainCondition(cond, ctx, e.config.MaxDepth)
	if err == nil {
		e.logger.Debug("evaluated condition", "condition", cond, "result", result.Result, "trace", result.Trace)
	}
	return result, err
}

// Validate statically checks template.
func (e *Engine) Validate(template string) *ValidationResult {
	start := time.Now()
	res := validateTemplate(template, e.parseOptions())
	e.observer.ObserveValidate(time.Since(start), res.Valid)
	return res
}

// ValidateAgainst statically checks template and reports variables that
// ctx cannot resolve as warnings.
func (e *Engine) ValidateAgainst(template string, ctx Context) *ValidationResult {
	start := time.Now()
	res := validateAgainst(template, ctx, e.parseOptions())
	e.observer.ObserveValidate(time.Since(start), res.Valid)
	return res
}

// Render renders template against ctx using the global configuration.
func Render(template string, ctx Context) (*RenderResult, error) {
	return New().Render(template, ctx)
}

// EvaluateCondition parses and evaluates cond against ctx.
func EvaluateCondition(cond string, ctx Context) (bool, error) {
	res, err := New().EvaluateCondition(cond, ctx)
	if err != nil {
		return false, err
	}
	return res.Result, nil
}

// Explain evaluates cond and reports how the result was reached.
func Explain(cond string, ctx Context) (*ConditionResult, error) {
	return New().EvaluateCondition(cond, ctx)
}

// Validate statically checks template using the global configuration.
func Validate(template string) *ValidationResult {
	return New().Validate(template)
}

// ValidateAgainst validates template and warns about variables missing from ctx.
func ValidateAgainst(template string, ctx Context) *ValidationResult {
	return New().ValidateAgainst(template, ctx)
}
