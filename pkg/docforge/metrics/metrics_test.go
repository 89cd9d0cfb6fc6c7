package metrics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := New(registry)

	assert.NotNil(t, metrics.RenderDuration)
	assert.NotNil(t, metrics.RenderTotal)
	assert.NotNil(t, metrics.RenderErrors)
	assert.NotNil(t, metrics.ConditionDuration)
	assert.NotNil(t, metrics.ConditionTotal)
	assert.NotNil(t, metrics.ConditionErrors)
	assert.NotNil(t, metrics.ValidationDuration)
	assert.NotNil(t, metrics.ValidationTotal)
	assert.NotNil(t, metrics.ValidationInvalid)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)

	assert.Panics(t, func() { New(registry) })
}

func TestMetrics_ObserveRender(t *testing.T) {
	metrics := New(prometheus.NewRegistry())

	metrics.ObserveRender(2*time.Millisecond, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RenderTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.RenderErrors))

	metrics.ObserveRender(time.Millisecond, docforge.NewUnknownSectionError("x", nil))
	metrics.ObserveRender(time.Millisecond, docforge.NewUnknownSectionError("y", nil))
	metrics.ObserveRender(time.Millisecond, errors.New("boom"))

	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.RenderTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RenderErrors.WithLabelValues(KindUnknownSection)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RenderErrors.WithLabelValues(KindOther)))
}

func TestMetrics_ObserveValidate(t *testing.T) {
	metrics := New(prometheus.NewRegistry())

	metrics.ObserveValidate(time.Millisecond, true)
	metrics.ObserveValidate(time.Millisecond, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ValidationTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationInvalid))
}

func TestErrorKind(t *testing.T) {
	condErr := docforge.NewConditionSyntaxError("a AND", "expected operand", "", 5)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"template syntax", docforge.NewTemplateSyntaxError("bad", 1, 1), KindTemplateSyntax},
		{"condition", condErr, KindConditionSyntax},
		{"condition inside template error", &docforge.TemplateSyntaxError{Message: "invalid condition", Cause: condErr}, KindConditionSyntax},
		{"wrapped condition", fmt.Errorf("if block at line 1: %w", condErr), KindConditionSyntax},
		{"cycle", docforge.NewCircularSectionReferenceError([]string{"a"}, "a"), KindCircularSection},
		{"unknown section", docforge.NewUnknownSectionError("a", nil), KindUnknownSection},
		{"other", errors.New("x"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestMetrics_WithEngine(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := New(registry)
	engine := docforge.NewWithConfig(nil,
		docforge.WithObserver(metrics),
		docforge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := engine.Render("Hi {{name}}", docforge.NewContext())
	require.NoError(t, err)
	_, err = engine.Render("{% section a %}{% include a %}{% endsection %}{% include a %}", docforge.NewContext())
	require.Error(t, err)
	_, err = engine.EvaluateCondition("a ==", docforge.NewContext())
	require.Error(t, err)
	engine.Validate("{% if %}")

	expected := `
# HELP docforge_render_errors_total Total number of failed render calls by error kind
# TYPE docforge_render_errors_total counter
docforge_render_errors_total{kind="circular_section"} 1
# HELP docforge_render_total Total number of render calls
# TYPE docforge_render_total counter
docforge_render_total 2
# HELP docforge_condition_errors_total Total number of failed condition evaluations by error kind
# TYPE docforge_condition_errors_total counter
docforge_condition_errors_total{kind="condition_syntax"} 1
# HELP docforge_validation_invalid_total Total number of validations that found errors
# TYPE docforge_validation_invalid_total counter
docforge_validation_invalid_total 1
`
	err = testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"docforge_render_errors_total",
		"docforge_render_total",
		"docforge_condition_errors_total",
		"docforge_validation_invalid_total")
	assert.NoError(t, err)
}
