package docforge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "text and variable",
			input:    "Hello {{name}}",
			expected: `[Text("Hello ") Var(name)]`,
		},
		{
			name:     "if without else",
			input:    "{% if a %}yes{% endif %}",
			expected: `[If(a, [Text("yes")])]`,
		},
		{
			name:     "if with else",
			input:    "{% if a %}x{% else %}y{% endif %}",
			expected: `[If(a, [Text("x")], [Text("y")])]`,
		},
		{
			name:     "empty else",
			input:    "{% if a %}x{% else %}{% endif %}",
			expected: `[If(a, [Text("x")], [])]`,
		},
		{
			name:     "nested if",
			input:    "{% if a %}{% if b %}{{c}}{% endif %}{% endif %}",
			expected: `[If(a, [If(b, [Var(c)])])]`,
		},
		{
			name:     "section and include",
			input:    "{% section s %}body{% endsection %}{% include s %}",
			expected: `[Section(s, [Text("body")]) Include(s)]`,
		},
		{
			name:     "include inside if inside section",
			input:    "{% section outer %}{% if x %}{% include inner %}{% endif %}{% endsection %}",
			expected: `[Section(outer, [If(x, [Include(inner)])])]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tmpl.String())
		})
	}
}

func TestParseTemplateCollectsNestedSections(t *testing.T) {
	tmpl, err := ParseTemplate("{% include b %}{% section a %}{% if x %}{% section b %}B{% endsection %}{% endif %}{% endsection %}")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, tmpl.SectionNames())
	b, ok := tmpl.Section("b")
	require.True(t, ok)
	assert.Equal(t, `Section(b, [Text("B")])`, b.String())
	_, ok = tmpl.Section("c")
	assert.False(t, ok)
}

func TestParseTemplateErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		line    int
	}{
		{"unclosed if", "{% if a %}x", "unclosed {% if %} block", 1},
		{"unclosed if after else", "{% if a %}x{% else %}y", "unclosed {% if %} block", 1},
		{"unclosed section", "\n{% section s %}x", "unclosed {% section s %} block", 2},
		{"else outside if", "a{% else %}b", "unexpected {% else %} without matching {% if %}", 1},
		{"stray endif", "{% endif %}", "unexpected {% endif %} without matching {% if %}", 1},
		{"stray endsection", "x\n\n{% endsection %}", "unexpected {% endsection %} without matching {% section %}", 3},
		{"duplicate else", "{% if a %}{% else %}{% else %}{% endif %}", "duplicate {% else %}", 1},
		{"endif closes section", "{% section a %}{% endif %}", `unexpected {% endif %} inside section "a"`, 1},
		{"endsection closes if", "{% if a %}{% endsection %}", "unexpected {% endsection %} inside if block", 1},
		{"duplicate section", "{% section a %}{% endsection %}\n{% section a %}{% endsection %}", `section "a" already defined at line 1`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate(tt.input)
			require.Error(t, err)

			var syntaxErr *TemplateSyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Contains(t, syntaxErr.Message, tt.message)
			assert.Equal(t, tt.line, syntaxErr.Line)
		})
	}
}

func TestParseTemplateDepthLimit(t *testing.T) {
	opts := defaultParseOptions()
	opts.maxDepth = 3

	ok := strings.Repeat("{% if a %}", 3) + strings.Repeat("{% endif %}", 3)
	_, err := parseTemplate(ok, opts)
	require.NoError(t, err)

	tooDeep := strings.Repeat("{% if a %}", 4) + strings.Repeat("{% endif %}", 4)
	_, err = parseTemplate(tooDeep, opts)
	require.Error(t, err)
	assert.True(t, IsTemplateSyntaxError(err))
	assert.Contains(t, err.Error(), "maximum depth of 3")
}
