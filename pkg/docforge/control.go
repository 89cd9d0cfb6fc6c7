package docforge

import (
	"fmt"
	"strings"
)

// Node is an element of a parsed template
type Node interface {
	String() string
}

// TextNode emits its text verbatim
type TextNode struct {
	Text string
}

func (n *TextNode) String() string {
	return fmt.Sprintf("Text(%q)", n.Text)
}

// SubstitutionNode emits the formatted value of a variable path
type SubstitutionNode struct {
	Path   string
	Line   int
	Column int
}

func (n *SubstitutionNode) String() string {
	return fmt.Sprintf("Var(%s)", n.Path)
}

// ConditionalNode renders Then when Condition holds and Else otherwise
type ConditionalNode struct {
	Condition string
	Then      []Node
	Else      []Node
	HasElse   bool
	Line      int
	Column    int
}

func (n *ConditionalNode) String() string {
	if n.HasElse {
		return fmt.Sprintf("If(%s, %s, %s)", n.Condition, nodeList(n.Then), nodeList(n.Else))
	}
	return fmt.Sprintf("If(%s, %s)", n.Condition, nodeList(n.Then))
}

// SectionNode defines a named reusable body. It emits nothing where it is defined.
type SectionNode struct {
	Name   string
	Body   []Node
	Line   int
	Column int
}

func (n *SectionNode) String() string {
	return fmt.Sprintf("Section(%s, %s)", n.Name, nodeList(n.Body))
}

// IncludeNode expands the body of a named section
type IncludeNode struct {
	Name   string
	Line   int
	Column int
}

func (n *IncludeNode) String() string {
	return fmt.Sprintf("Include(%s)", n.Name)
}

func nodeList(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Template is a parsed template together with its section table.
type Template struct {
	Source   string
	Nodes    []Node
	sections map[string]*SectionNode
	order    []string
}

func (t *Template) String() string {
	return nodeList(t.Nodes)
}

// Section returns a section defined anywhere in the template
func (t *Template) Section(name string) (*SectionNode, bool) {
	s, ok := t.sections[name]
	return s, ok
}

// SectionNames lists section names in definition order
func (t *Template) SectionNames() []string {
	return append([]string(nil), t.order...)
}

// ParseTemplate parses a template with the default options.
func ParseTemplate(source string) (*Template, error) {
	return parseTemplate(source, defaultParseOptions())
}

func parseTemplate(source string, opts parseOptions) (*Template, error) {
	tokens, errs := tokenize(source, opts)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	nodes, err := parseTokens(tokens, opts.maxDepth)
	if err != nil {
		return nil, err
	}
	tmpl := &Template{Source: source, Nodes: nodes}
	if err := tmpl.collectSections(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// collectSections registers every section definition at any depth so an
// include may appear before the section it names.
func (t *Template) collectSections() error {
	t.sections = make(map[string]*SectionNode)
	var walk func(nodes []Node) error
	walk = func(nodes []Node) error {
		for _, node := range nodes {
			switch n := node.(type) {
			case *SectionNode:
				if prev, ok := t.sections[n.Name]; ok {
					return NewTemplateSyntaxError(
						fmt.Sprintf("section %q already defined at line %d", n.Name, prev.Line), n.Line, n.Column)
				}
				t.sections[n.Name] = n
				t.order = append(t.order, n.Name)
				if err := walk(n.Body); err != nil {
					return err
				}
			case *ConditionalNode:
				if err := walk(n.Then); err != nil {
					return err
				}
				if err := walk(n.Else); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(t.Nodes)
}

// ControlParser builds the node tree from a token stream
type ControlParser struct {
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
}

func parseTokens(tokens []Token, maxDepth int) ([]Node, error) {
	p := &ControlParser{tokens: tokens, maxDepth: maxDepth}
	nodes, stop, err := p.parseBodyUntil()
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, p.unexpected(*stop, "")
	}
	return nodes, nil
}

func (p *ControlParser) current() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *ControlParser) advance() {
	p.pos++
}

func (p *ControlParser) unexpected(tok Token, inside string) error {
	msg := fmt.Sprintf("unexpected {%% %s %%}", tok.Type)
	if inside != "" {
		msg += " inside " + inside
	} else if tok.Type == TokenElse || tok.Type == TokenEndIf {
		msg += " without matching {% if %}"
	} else if tok.Type == TokenEndSection {
		msg += " without matching {% section %}"
	}
	return NewTemplateSyntaxError(msg, tok.Line, tok.Column)
}

// parseBodyUntil parses nodes until one of the stop tokens is reached. The
// stop token is returned unconsumed; nil means the input ended. Closing tags
// that are not stop tokens are returned as well so the caller can report them.
func (p *ControlParser) parseBodyUntil(stopTokens ...TokenType) ([]Node, *Token, error) {
	var nodes []Node
	for {
		tok, ok := p.current()
		if !ok {
			return nodes, nil, nil
		}

		for _, stop := range stopTokens {
			if tok.Type == stop {
				return nodes, &tok, nil
			}
		}

		switch tok.Type {
		case TokenText:
			nodes = append(nodes, &TextNode{Text: tok.Value})
			p.advance()
		case TokenVariable:
			nodes = append(nodes, &SubstitutionNode{Path: tok.Value, Line: tok.Line, Column: tok.Column})
			p.advance()
		case TokenInclude:
			nodes = append(nodes, &IncludeNode{Name: tok.Value, Line: tok.Line, Column: tok.Column})
			p.advance()
		case TokenIf:
			node, err := p.parseIf()
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, node)
		case TokenSection:
			node, err := p.parseSection()
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, node)
		default:
			return nodes, &tok, nil
		}
	}
}

func (p *ControlParser) enter(tok Token) error {
	p.depth++
	if p.depth > p.maxDepth {
		return NewTemplateSyntaxError(
			fmt.Sprintf("block nesting exceeds maximum depth of %d", p.maxDepth), tok.Line, tok.Column)
	}
	return nil
}

func (p *ControlParser) leave() {
	p.depth--
}

func (p *ControlParser) parseIf() (*ConditionalNode, error) {
	open, _ := p.current()
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer p.leave()
	p.advance()

	node := &ConditionalNode{Condition: open.Value, Line: open.Line, Column: open.Column}
	where := fmt.Sprintf("if block opened at line %d", open.Line)

	body, stop, err := p.parseBodyUntil(TokenElse, TokenEndIf)
	if err != nil {
		return nil, err
	}
	node.Then = body
	if stop == nil {
		return nil, NewTemplateSyntaxError("unclosed {% if %} block: expected {% endif %}", open.Line, open.Column)
	}

	if stop.Type == TokenElse {
		p.advance()
		node.HasElse = true
		body, stop, err = p.parseBodyUntil(TokenElse, TokenEndIf)
		if err != nil {
			return nil, err
		}
		node.Else = body
		if stop == nil {
			return nil, NewTemplateSyntaxError("unclosed {% if %} block: expected {% endif %}", open.Line, open.Column)
		}
		if stop.Type == TokenElse {
			return nil, NewTemplateSyntaxError(
				fmt.Sprintf("duplicate {%% else %%} in %s", where), stop.Line, stop.Column)
		}
	}

	if stop.Type != TokenEndIf {
		return nil, p.unexpected(*stop, where)
	}
	p.advance()
	return node, nil
}

func (p *ControlParser) parseSection() (*SectionNode, error) {
	open, _ := p.current()
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer p.leave()
	p.advance()

	body, stop, err := p.parseBodyUntil(TokenEndSection)
	if err != nil {
		return nil, err
	}
	if stop == nil {
		return nil, NewTemplateSyntaxError(
			fmt.Sprintf("unclosed {%% section %s %%} block: expected {%% endsection %%}", open.Value), open.Line, open.Column)
	}
	if stop.Type != TokenEndSection {
		return nil, p.unexpected(*stop, fmt.Sprintf("section %q opened at line %d", open.Value, open.Line))
	}
	p.advance()
	return &SectionNode{Name: open.Value, Body: body, Line: open.Line, Column: open.Column}, nil
}
