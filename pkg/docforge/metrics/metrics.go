// Package metrics exposes DocForge engine activity as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

// Error kinds used as the "kind" label of RenderErrors and ConditionErrors.
const (
	KindTemplateSyntax  = "template_syntax"
	KindConditionSyntax = "condition_syntax"
	KindCircularSection = "circular_section"
	KindUnknownSection  = "unknown_section"
	KindOther           = "other"
)

// Metrics holds the engine metrics. It implements docforge.Observer.
//
// Pass an instance registry (prometheus.NewRegistry()) rather than
// prometheus.DefaultRegisterer so several engines can be instrumented in one
// process and tests stay isolated.
type Metrics struct {
	RenderDuration prometheus.Histogram
	RenderTotal    prometheus.Counter
	RenderErrors   *prometheus.CounterVec

	ConditionDuration prometheus.Histogram
	ConditionTotal    prometheus.Counter
	ConditionErrors   *prometheus.CounterVec

	ValidationDuration prometheus.Histogram
	ValidationTotal    prometheus.Counter
	ValidationInvalid  prometheus.Counter
}

var _ docforge.Observer = (*Metrics)(nil)

// New creates all engine metrics and registers them with registry.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	engine := docforge.New(docforge.WithObserver(metrics.New(registry)))
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docforge_render_duration_seconds",
			Help:    "Time spent rendering templates",
			Buckets: DurationBuckets(),
		}),
		RenderTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docforge_render_total",
			Help: "Total number of render calls",
		}),
		RenderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docforge_render_errors_total",
			Help: "Total number of failed render calls by error kind",
		}, []string{"kind"}),

		ConditionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docforge_condition_duration_seconds",
			Help:    "Time spent evaluating standalone conditions",
			Buckets: DurationBuckets(),
		}),
		ConditionTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docforge_condition_total",
			Help: "Total number of standalone condition evaluations",
		}),
		ConditionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docforge_condition_errors_total",
			Help: "Total number of failed condition evaluations by error kind",
		}, []string{"kind"}),

		ValidationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docforge_validation_duration_seconds",
			Help:    "Time spent validating templates",
			Buckets: DurationBuckets(),
		}),
		ValidationTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docforge_validation_total",
			Help: "Total number of validation calls",
		}),
		ValidationInvalid: factory.NewCounter(prometheus.CounterOpts{
			Name: "docforge_validation_invalid_total",
			Help: "Total number of validations that found errors",
		}),
	}
}

// DurationBuckets covers sub-millisecond renders up to a few seconds.
func DurationBuckets() []float64 {
	return []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
}

// ObserveRender records a render call.
func (m *Metrics) ObserveRender(d time.Duration, err error) {
	m.RenderTotal.Inc()
	m.RenderDuration.Observe(d.Seconds())
	if err != nil {
		m.RenderErrors.WithLabelValues(ErrorKind(err)).Inc()
	}
}

// ObserveCondition records a standalone condition evaluation.
func (m *Metrics) ObserveCondition(d time.Duration, err error) {
	m.ConditionTotal.Inc()
	m.ConditionDuration.Observe(d.Seconds())
	if err != nil {
		m.ConditionErrors.WithLabelValues(ErrorKind(err)).Inc()
	}
}

// ObserveValidate records a validation call.
func (m *Metrics) ObserveValidate(d time.Duration, valid bool) {
	m.ValidationTotal.Inc()
	m.ValidationDuration.Observe(d.Seconds())
	if !valid {
		m.ValidationInvalid.Inc()
	}
}

// ErrorKind classifies err for the "kind" label. Condition errors are checked
// before template errors because a template error may wrap one.
func ErrorKind(err error) string {
	var (
		condErr    *docforge.ConditionSyntaxError
		cycleErr   *docforge.CircularSectionReferenceError
		unknownErr *docforge.UnknownSectionError
		syntaxErr  *docforge.TemplateSyntaxError
	)
	switch {
	case errors.As(err, &condErr):
		return KindConditionSyntax
	case errors.As(err, &cycleErr):
		return KindCircularSection
	case errors.As(err, &unknownErr):
		return KindUnknownSection
	case errors.As(err, &syntaxErr):
		return KindTemplateSyntax
	}
	return KindOther
}
