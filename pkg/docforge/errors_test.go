package docforge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateSyntaxError(t *testing.T) {
	tests := []struct {
		name string
		err  *TemplateSyntaxError
		want string
	}{
		{
			name: "line and column",
			err:  &TemplateSyntaxError{Message: "bad tag", Line: 3, Column: 7},
			want: "template syntax error at line 3, column 7: bad tag",
		},
		{
			name: "line only",
			err:  &TemplateSyntaxError{Message: "bad tag", Line: 3},
			want: "template syntax error at line 3: bad tag",
		},
		{
			name: "no position",
			err:  &TemplateSyntaxError{Message: "bad tag"},
			want: "template syntax error: bad tag",
		},
		{
			name: "with cause",
			err:  &TemplateSyntaxError{Message: "invalid condition", Line: 1, Column: 1, Cause: errors.New("boom")},
			want: "template syntax error at line 1, column 1: invalid condition: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConditionSyntaxError(t *testing.T) {
	err := NewConditionSyntaxError("a AND", "expected operand", "", 5)
	assert.Equal(t, "condition syntax error at position 5: expected operand", err.Error())

	err = NewConditionSyntaxError("a = b", "use '=='", "=", 2)
	assert.Equal(t, "condition syntax error at position 2 near '=': use '=='", err.Error())

	wrapped := &TemplateSyntaxError{Message: "invalid condition", Cause: err}
	assert.True(t, IsConditionSyntaxError(wrapped))
	assert.True(t, IsTemplateSyntaxError(wrapped))
}

func TestCircularSectionReferenceError(t *testing.T) {
	err := NewCircularSectionReferenceError([]string{"root", "A", "B"}, "A")

	var cycle *CircularSectionReferenceError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"A", "B", "A"}, cycle.Cycle)
	assert.Equal(t, "A -> B -> A", cycle.Path())
	assert.Equal(t, "circular section reference detected: A -> B -> A", err.Error())
	assert.True(t, IsCircularSectionReferenceError(fmt.Errorf("render: %w", err)))
}

func TestUnknownSectionError(t *testing.T) {
	assert.Equal(t, "unknown section 'x': no sections defined", NewUnknownSectionError("x", nil).Error())
	assert.Equal(t, "unknown section 'x' (available: a, b)", NewUnknownSectionError("x", []string{"a", "b"}).Error())
	assert.True(t, IsUnknownSectionError(NewUnknownSectionError("x", nil)))
	assert.False(t, IsUnknownSectionError(errors.New("x")))
}

func TestMultiError(t *testing.T) {
	m := NewMultiError()
	assert.NoError(t, m.Err())
	assert.Equal(t, "no errors", m.Error())

	first := NewTemplateSyntaxError("one", 1, 1)
	m.Add(nil)
	m.Add(first)
	assert.Equal(t, 1, m.Len())
	assert.Same(t, first, m.Err())

	m.Add(NewUnknownSectionError("s", nil))
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "2 errors occurred:\n"+
		"  [1] template syntax error at line 1, column 1: one\n"+
		"  [2] unknown section 's': no sections defined", m.Err().Error())
	assert.Equal(t, []string{
		"template syntax error at line 1, column 1: one",
		"unknown section 's': no sections defined",
	}, m.Messages())
	assert.True(t, IsUnknownSectionError(m.Err()))
	assert.True(t, IsTemplateSyntaxError(m.Err()))

	errs := m.Errors()
	errs[0] = nil
	assert.NotNil(t, m.Errors()[0])
}

func TestRecoverError(t *testing.T) {
	cause := errors.New("bad")
	err := RecoverError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "panic recovered: bad", err.Error())

	assert.Equal(t, "panic recovered: oops", RecoverError("oops").Error())
	assert.Equal(t, "panic recovered: 42", RecoverError(42).Error())
}
