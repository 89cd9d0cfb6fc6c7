package docforge

import (
	"errors"
	"fmt"
	"strings"
)

// TemplateSyntaxError represents malformed template structure: bad block
// nesting, unknown tags, unterminated markers or exceeded depth limits.
type TemplateSyntaxError struct {
	Message string
	Line    int
	Column  int
	Cause   error
}

func (e *TemplateSyntaxError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("template syntax error at line %d, column %d: %s", e.Line, e.Column, msg)
	} else if e.Line > 0 {
		return fmt.Sprintf("template syntax error at line %d: %s", e.Line, msg)
	}
	return fmt.Sprintf("template syntax error: %s", msg)
}

func (e *TemplateSyntaxError) Unwrap() error {
	return e.Cause
}

// NewTemplateSyntaxError creates a new template syntax error with position information
func NewTemplateSyntaxError(message string, line, column int) error {
	return &TemplateSyntaxError{
		Message: message,
		Line:    line,
		Column:  column,
	}
}

// ConditionSyntaxError represents a malformed condition. Pos is the byte
// offset of the offending token within Condition.
type ConditionSyntaxError struct {
	Condition string
	Message   string
	Token     string
	Pos       int
}

func (e *ConditionSyntaxError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("condition syntax error at position %d near '%s': %s", e.Pos, e.Token, e.Message)
	}
	return fmt.Sprintf("condition syntax error at position %d: %s", e.Pos, e.Message)
}

// NewConditionSyntaxError creates a new condition syntax error
func NewConditionSyntaxError(condition, message, token string, pos int) error {
	return &ConditionSyntaxError{
		Condition: condition,
		Message:   message,
		Token:     token,
		Pos:       pos,
	}
}

// CircularSectionReferenceError reports a section that includes itself
// through a chain of includes. Cycle starts and ends with the same name.
type CircularSectionReferenceError struct {
	Cycle []string
}

func (e *CircularSectionReferenceError) Error() string {
	return fmt.Sprintf("circular section reference detected: %s", e.Path())
}

// Path renders the cycle as "A -> B -> A".
func (e *CircularSectionReferenceError) Path() string {
	return strings.Join(e.Cycle, " -> ")
}

// NewCircularSectionReferenceError builds the error from the ancestor chain
// and the name that closed the loop.
func NewCircularSectionReferenceError(stack []string, name string) error {
	start := 0
	for i, s := range stack {
		if s == name {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-start+1)
	cycle = append(cycle, stack[start:]...)
	cycle = append(cycle, name)
	return &CircularSectionReferenceError{Cycle: cycle}
}

// UnknownSectionError reports an include of a section that is never defined.
type UnknownSectionError struct {
	Name      string
	Available []string
}

func (e *UnknownSectionError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown section '%s': no sections defined", e.Name)
	}
	return fmt.Sprintf("unknown section '%s' (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// NewUnknownSectionError creates a new unknown section error
func NewUnknownSectionError(name string, available []string) error {
	return &UnknownSectionError{
		Name:      name,
		Available: available,
	}
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors in insertion order
func (m *MultiError) Errors() []error {
	return append([]error(nil), m.errors...)
}

// Messages returns the text of every collected error
func (m *MultiError) Messages() []string {
	msgs := make([]string, len(m.errors))
	for i, err := range m.errors {
		msgs[i] = err.Error()
	}
	return msgs
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.errors
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsTemplateSyntaxError checks if an error is a template syntax error
func IsTemplateSyntaxError(err error) bool {
	var target *TemplateSyntaxError
	return errors.As(err, &target)
}

// IsConditionSyntaxError checks if an error is a condition syntax error
func IsConditionSyntaxError(err error) bool {
	var target *ConditionSyntaxError
	return errors.As(err, &target)
}

// IsCircularSectionReferenceError checks if an error is a section cycle
func IsCircularSectionReferenceError(err error) bool {
	var target *CircularSectionReferenceError
	return errors.As(err, &target)
}

// IsUnknownSectionError checks if an error is an unknown section error
func IsUnknownSectionError(err error) bool {
	var target *UnknownSectionError
	return errors.As(err, &target)
}
