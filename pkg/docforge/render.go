package docforge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RenderResult is the output of one render call
type RenderResult struct {
	Output string `json:"output" yaml:"output"`
	// VariablesUsed lists every substituted path once, in first-use order,
	// whether or not it resolved.
	VariablesUsed []string `json:"variablesUsed" yaml:"variablesUsed"`
	// ConditionsEvaluated lists every evaluated condition in evaluation order.
	ConditionsEvaluated []string `json:"conditionsEvaluated" yaml:"conditionsEvaluated"`
	// Unresolved lists substituted paths that had no value.
	Unresolved []string `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// renderOptions extend parseOptions with render-only settings
type renderOptions struct {
	parseOptions
	placeholder string
	maxIncludes int
}

// renderState is owned by a single render call
type renderState struct {
	tmpl   *Template
	ctx    Context
	opts   renderOptions
	logger *slog.Logger
	debug  bool

	out        strings.Builder
	stack      []string
	depth      int
	includes   int
	vars       []string
	seenVars   map[string]bool
	conditions []string
	unresolved []string
	seenUnres  map[string]bool
}

func renderTemplate(template string, ctx Context, opts renderOptions) (*RenderResult, error) {
	tmpl, err := parseTemplate(template, opts.parseOptions)
	if err != nil {
		return nil, err
	}
	return tmpl.render(ctx, opts)
}

func (t *Template) render(ctx Context, opts renderOptions) (*RenderResult, error) {
	logger := opts.logger
	if logger == nil {
		logger = discardLogger()
	}
	st := &renderState{
		tmpl:      t,
		ctx:       ctx,
		opts:      opts,
		logger:    logger,
		debug:     logger.Enabled(context.Background(), slog.LevelDebug),
		seenVars:  make(map[string]bool),
		seenUnres: make(map[string]bool),
	}
	if st.debug {
		logger.Debug("rendering template", "nodes", len(t.Nodes), "sections", len(t.order), "context_vars", ctx.Len())
	}

	if err := st.renderNodes(t.Nodes); err != nil {
		return nil, err
	}

	return &RenderResult{
		Output:              st.out.String(),
		VariablesUsed:       nonNil(st.vars),
		ConditionsEvaluated: nonNil(st.conditions),
		Unresolved:          st.unresolved,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (st *renderState) renderNodes(nodes []Node) error {
	for _, node := range nodes {
		if err := st.renderNode(node); err != nil {
			return err
		}
	}
	return nil
}

func (st *renderState) renderNode(node Node) error {
	switch n := node.(type) {
	case *TextNode:
		st.out.WriteString(n.Text)

	case *SubstitutionNode:
		st.substitute(n)

	case *ConditionalNode:
		return st.renderConditional(n)

	case *SectionNode:
		// definitions were registered before rendering

	case *IncludeNode:
		return st.renderInclude(n)

	default:
		return fmt.Errorf("unsupported node type %T", node)
	}
	return nil
}

func (st *renderState) substitute(n *SubstitutionNode) {
	if !st.seenVars[n.Path] {
		st.seenVars[n.Path] = true
		st.vars = append(st.vars, n.Path)
	}

	value, ok := ResolveName(n.Path, st.ctx)
	if !ok {
		if !st.seenUnres[n.Path] {
			st.seenUnres[n.Path] = true
			st.unresolved = append(st.unresolved, n.Path)
		}
		if st.debug {
			st.logger.Debug("unresolved variable", "path", n.Path, "line", n.Line)
		}
		if st.opts.placeholder != "" {
			st.out.WriteString(strings.ReplaceAll(st.opts.placeholder, "{name}", n.Path))
		}
		return
	}
	st.out.WriteString(Format(value))
}

func (st *renderState) enter(line, column int) error {
	st.depth++
	if st.depth > st.opts.maxDepth {
		return NewTemplateSyntaxError(
			fmt.Sprintf("render depth exceeds maximum of %d", st.opts.maxDepth), line, column)
	}
	return nil
}

func (st *renderState) leave() {
	st.depth--
}

func (st *renderState) renderConditional(n *ConditionalNode) error {
	if err := st.enter(n.Line, n.Column); err != nil {
		return err
	}
	defer st.leave()

	st.conditions = append(st.conditions, n.Condition)
	expr, err := parseCondition(n.Condition, st.opts.maxDepth)
	if err != nil {
		return fmt.Errorf("if block at line %d: %w", n.Line, err)
	}
	result := EvaluateExpr(expr, st.ctx)
	if st.debug {
		st.logger.Debug("evaluated condition", "condition", n.Condition, "result", result, "line", n.Line)
	}

	if result {
		return st.renderNodes(n.Then)
	}
	return st.renderNodes(n.Else)
}

func (st *renderState) renderInclude(n *IncludeNode) error {
	for _, name := range st.stack {
		if name == n.Name {
			err := NewCircularSectionReferenceError(st.stack, n.Name)
			st.logger.Warn("circular section reference", "cycle", err.(*CircularSectionReferenceError).Path(), "line", n.Line)
			return err
		}
	}

	section, ok := st.tmpl.Section(n.Name)
	if !ok {
		return NewUnknownSectionError(n.Name, st.tmpl.SectionNames())
	}

	st.includes++
	if st.includes > st.opts.maxIncludes {
		return NewTemplateSyntaxError(
			fmt.Sprintf("section expansion exceeds maximum of %d includes", st.opts.maxIncludes), n.Line, n.Column)
	}

	if err := st.enter(n.Line, n.Column); err != nil {
		return err
	}
	defer st.leave()

	st.stack = append(st.stack, n.Name)
	defer func() {
		st.stack = st.stack[:len(st.stack)-1]
	}()

	if st.debug {
		st.logger.Debug("expanding section", "name", n.Name, "stack", strings.Join(st.stack, " -> "))
	}
	return st.renderNodes(section.Body)
}
