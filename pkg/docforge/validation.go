package docforge

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// IssueSeverity indicates validation issue severity.
type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

// IssueCode classifies validation issues.
type IssueCode string

const (
	IssueCodeSyntaxError          IssueCode = "SYNTAX_ERROR"
	IssueCodeControlBlockMismatch IssueCode = "CONTROL_BLOCK_MISMATCH"
	IssueCodeConditionSyntax      IssueCode = "CONDITION_SYNTAX"
	IssueCodeCircularSection      IssueCode = "CIRCULAR_SECTION"
	IssueCodeUnknownSection       IssueCode = "UNKNOWN_SECTION"
	IssueCodeUnknownVariable      IssueCode = "UNKNOWN_VARIABLE"
)

// ValidationIssue is a single validation problem.
type ValidationIssue struct {
	Severity IssueSeverity `json:"severity" yaml:"severity"`
	Code     IssueCode     `json:"code" yaml:"code"`
	Message  string        `json:"message" yaml:"message"`
	Line     int           `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int           `json:"column,omitempty" yaml:"column,omitempty"`
}

// ValidationResult contains the outcome of a static template check.
type ValidationResult struct {
	Valid      bool              `json:"valid" yaml:"valid"`
	Variables  []string          `json:"variables" yaml:"variables"`
	Conditions []string          `json:"conditions" yaml:"conditions"`
	Sections   []string          `json:"sections" yaml:"sections"`
	Errors     []string          `json:"errors" yaml:"errors"`
	Warnings   []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Issues     []ValidationIssue `json:"issues" yaml:"issues"`

	errs *MultiError
}

// Err returns the collected errors, or nil when the template is valid.
func (r *ValidationResult) Err() error {
	if r.errs == nil {
		return nil
	}
	return r.errs.Err()
}

func (r *ValidationResult) addError(code IssueCode, err error) {
	issue := ValidationIssue{Severity: IssueSeverityError, Code: code, Message: err.Error()}
	if tse, ok := err.(*TemplateSyntaxError); ok {
		issue.Line, issue.Column = tse.Line, tse.Column
	}
	r.Issues = append(r.Issues, issue)
	r.Errors = append(r.Errors, err.Error())
	r.errs.Add(err)
}

func (r *ValidationResult) addWarning(code IssueCode, line, column int, msg string) {
	r.Issues = append(r.Issues, ValidationIssue{
		Severity: IssueSeverityWarning,
		Code:     code,
		Message:  msg,
		Line:     line,
		Column:   column,
	})
	r.Warnings = append(r.Warnings, msg)
}

func validateTemplate(template string, opts parseOptions) *ValidationResult {
	res := &ValidationResult{
		Variables:  []string{},
		Conditions: []string{},
		Sections:   []string{},
		Errors:     []string{},
		Issues:     []ValidationIssue{},
		errs:       NewMultiError(),
	}

	tokens, lexErrs := tokenize(template, opts)
	for _, err := range lexErrs {
		res.addError(IssueCodeSyntaxError, err)
	}

	for _, tok := range tokens {
		switch tok.Type {
		case TokenVariable:
			res.Variables = appendUnique(res.Variables, tok.Value)
		case TokenIf:
			if slices.Contains(res.Conditions, tok.Value) {
				continue
			}
			res.Conditions = append(res.Conditions, tok.Value)
			if _, err := parseCondition(tok.Value, opts.maxDepth); err != nil {
				res.addError(IssueCodeConditionSyntax,
					&TemplateSyntaxError{Message: "invalid condition in if block", Line: tok.Line, Column: tok.Column, Cause: err})
			}
		}
	}

	// block structure is only meaningful when every marker lexed cleanly
	if len(lexErrs) == 0 {
		if _, err := parseTokens(tokens, opts.maxDepth); err != nil {
			res.addError(IssueCodeControlBlockMismatch, err)
		}
	}

	graph := buildSectionGraph(tokens)
	res.Sections = append(res.Sections, graph.order...)
	for _, err := range graph.duplicates {
		res.addError(IssueCodeSyntaxError, err)
	}
	for _, err := range graph.unknownIncludes() {
		res.addError(IssueCodeUnknownSection, err)
	}
	for _, err := range graph.cycles() {
		res.addError(IssueCodeCircularSection, err)
	}

	res.Valid = res.errs.Len() == 0
	if opts.logger != nil {
		opts.logger.Debug("validated template",
			"valid", res.Valid,
			"variables", len(res.Variables),
			"conditions", len(res.Conditions),
			"sections", len(res.Sections),
			"errors", res.errs.Len())
	}
	return res
}

func validateAgainst(template string, ctx Context, opts parseOptions) *ValidationResult {
	res := validateTemplate(template, opts)

	tokens, _ := tokenize(template, opts)
	warned := make(map[string]bool)
	warn := func(path string, tok Token, where string) {
		if warned[path] {
			return
		}
		if _, ok := ResolveName(path, ctx); ok {
			return
		}
		warned[path] = true
		res.addWarning(IssueCodeUnknownVariable, tok.Line, tok.Column,
			fmt.Sprintf("unknown variable '%s' %s at line %d", path, where, tok.Line))
	}

	for _, tok := range tokens {
		switch tok.Type {
		case TokenVariable:
			warn(tok.Value, tok, "in substitution")
		case TokenIf:
			expr, err := parseCondition(tok.Value, opts.maxDepth)
			if err != nil {
				continue
			}
			for _, ref := range References(expr) {
				warn(ref, tok, "in condition")
			}
		}
	}
	return res
}

// sectionGraph is the static include graph of a template. Includes outside
// any section hang off the root, named "".
type sectionGraph struct {
	order      []string
	defined    map[string]Token
	edges      map[string][]string
	includes   []Token
	duplicates []error
}

func buildSectionGraph(tokens []Token) *sectionGraph {
	g := &sectionGraph{
		defined: make(map[string]Token),
		edges:   make(map[string][]string),
	}
	var open []string
	for _, tok := range tokens {
		switch tok.Type {
		case TokenSection:
			if prev, ok := g.defined[tok.Value]; ok {
				g.duplicates = append(g.duplicates, NewTemplateSyntaxError(
					fmt.Sprintf("section %q already defined at line %d", tok.Value, prev.Line), tok.Line, tok.Column))
			} else {
				g.defined[tok.Value] = tok
				g.order = append(g.order, tok.Value)
			}
			open = append(open, tok.Value)
		case TokenEndSection:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		case TokenInclude:
			from := ""
			if len(open) > 0 {
				from = open[len(open)-1]
			}
			g.edges[from] = appendUnique(g.edges[from], tok.Value)
			g.includes = append(g.includes, tok)
		}
	}
	return g
}

func (g *sectionGraph) unknownIncludes() []error {
	var errs []error
	reported := make(map[string]bool)
	for _, tok := range g.includes {
		if _, ok := g.defined[tok.Value]; ok || reported[tok.Value] {
			continue
		}
		reported[tok.Value] = true
		errs = append(errs, &TemplateSyntaxError{
			Message: fmt.Sprintf("include of undefined section %q", tok.Value),
			Line:    tok.Line,
			Column:  tok.Column,
			Cause:   NewUnknownSectionError(tok.Value, g.order),
		})
	}
	return errs
}

// cycles walks the graph depth first keeping the chain of ancestors. A
// repeat within the chain is a cycle; reaching a section twice through
// different branches is not.
func (g *sectionGraph) cycles() []error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int)
	seen := make(map[string]bool)
	var (
		errs  []error
		stack []string
	)

	var visit func(name string)
	visit = func(name string) {
		state[name] = active
		stack = append(stack, name)
		for _, next := range g.edges[name] {
			if _, ok := g.defined[next]; !ok {
				continue
			}
			switch state[next] {
			case active:
				err := NewCircularSectionReferenceError(stack, next).(*CircularSectionReferenceError)
				if key := cycleKey(err.Cycle); !seen[key] {
					seen[key] = true
					errs = append(errs, err)
				}
			case unvisited:
				visit(next)
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
	}

	for _, name := range g.order {
		if state[name] == unvisited {
			visit(name)
		}
	}
	return errs
}

// cycleKey identifies a cycle independent of where it was entered.
func cycleKey(cycle []string) string {
	members := append([]string(nil), cycle[:len(cycle)-1]...)
	sort.Strings(members)
	return strings.Join(members, "\x00")
}
