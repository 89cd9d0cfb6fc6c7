package docforge

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ConditionTokenKind classifies a lexed condition token.
type ConditionTokenKind int

const (
	CondIdentifier ConditionTokenKind = iota
	CondNumber
	CondString
	CondBool
	CondNull
	CondAnd
	CondOr
	CondNot
	CondComparator
	CondLParen
	CondRParen
	CondEOF
)

func (k ConditionTokenKind) String() string {
	switch k {
	case CondIdentifier:
		return "identifier"
	case CondNumber:
		return "number"
	case CondString:
		return "string"
	case CondBool:
		return "boolean"
	case CondNull:
		return "null"
	case CondAnd:
		return "AND"
	case CondOr:
		return "OR"
	case CondNot:
		return "NOT"
	case CondComparator:
		return "comparator"
	case CondLParen:
		return "("
	case CondRParen:
		return ")"
	case CondEOF:
		return "end of condition"
	}
	return "unknown"
}

// ConditionToken is a lexed unit of a condition. Pos is the byte offset of
// the token in the condition string.
type ConditionToken struct {
	Kind ConditionTokenKind
	Text string
	Pos  int
}

// conditionKeywords are reserved regardless of case.
var conditionKeywords = map[string]ConditionTokenKind{
	"and":   CondAnd,
	"or":    CondOr,
	"not":   CondNot,
	"true":  CondBool,
	"false": CondBool,
	"null":  CondNull,
	"none":  CondNull,
}

// TokenizeCondition splits a condition into tokens terminated by CondEOF.
func TokenizeCondition(cond string) ([]ConditionToken, error) {
	var tokens []ConditionToken
	i := 0
	for i < len(cond) {
		r, size := utf8.DecodeRuneInString(cond[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case isDigit(cond[i]) || (cond[i] == '-' && i+1 < len(cond) && isDigit(cond[i+1])):
			start := i
			i++
			seenDot := false
			for i < len(cond) {
				c := cond[i]
				if c == '.' && !seenDot && i+1 < len(cond) && isDigit(cond[i+1]) {
					seenDot = true
				} else if !isDigit(c) {
					break
				}
				i++
			}
			tokens = append(tokens, ConditionToken{Kind: CondNumber, Text: cond[start:i], Pos: start})

		case r == '"' || r == '\'':
			start := i
			text, next, ok := scanQuoted(cond, i)
			if !ok {
				return tokens, NewConditionSyntaxError(cond, "unterminated string literal", cond[start:], start)
			}
			tokens = append(tokens, ConditionToken{Kind: CondString, Text: text, Pos: start})
			i = next

		case isWordRune(r):
			start := i
			for i < len(cond) && (isWordRune(rune(cond[i])) || cond[i] == '.') {
				i++
			}
			word := cond[start:i]
			kind, isKeyword := conditionKeywords[strings.ToLower(word)]
			if !isKeyword {
				kind = CondIdentifier
			}
			tokens = append(tokens, ConditionToken{Kind: kind, Text: word, Pos: start})

		case r == '(':
			tokens = append(tokens, ConditionToken{Kind: CondLParen, Text: "(", Pos: i})
			i++

		case r == ')':
			tokens = append(tokens, ConditionToken{Kind: CondRParen, Text: ")", Pos: i})
			i++

		case r == '=' || r == '!' || r == '<' || r == '>':
			op := cond[i : i+1]
			if i+1 < len(cond) && cond[i+1] == '=' {
				op = cond[i : i+2]
			}
			switch op {
			case "=":
				return tokens, NewConditionSyntaxError(cond, "unexpected '='; use '=='", op, i)
			case "!":
				return tokens, NewConditionSyntaxError(cond, "unexpected '!'; use NOT or '!='", op, i)
			}
			tokens = append(tokens, ConditionToken{Kind: CondComparator, Text: op, Pos: i})
			i += len(op)

		default:
			return tokens, NewConditionSyntaxError(cond, fmt.Sprintf("unexpected character %q", r), string(r), i)
		}
	}
	tokens = append(tokens, ConditionToken{Kind: CondEOF, Pos: len(cond)})
	return tokens, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanQuoted reads a quoted literal starting at cond[start]. A backslash
// escapes the following character.
func scanQuoted(cond string, start int) (string, int, bool) {
	quote := cond[start]
	var sb strings.Builder
	for i := start + 1; i < len(cond); i++ {
		c := cond[i]
		switch {
		case c == '\\' && i+1 < len(cond):
			i++
			sb.WriteByte(cond[i])
		case c == quote:
			return sb.String(), i + 1, true
		default:
			sb.WriteByte(c)
		}
	}
	return "", len(cond), false
}

// Expr is a node of a parsed condition.
type Expr interface {
	String() string
	value(ev *conditionEval) Value
	collectRefs(refs []string) []string
}

// LiteralExpr is a constant operand.
type LiteralExpr struct {
	Value Value
}

func (e *LiteralExpr) String() string {
	switch e.Value.Kind() {
	case KindNone:
		return "null"
	case KindBool:
		b, _ := e.Value.AsBool()
		return strconv.FormatBool(b)
	case KindString:
		s, _ := e.Value.AsString()
		return strconv.Quote(s)
	}
	return Format(e.Value)
}

func (e *LiteralExpr) value(*conditionEval) Value         { return e.Value }
func (e *LiteralExpr) collectRefs(refs []string) []string { return refs }

// RefExpr is a dotted variable reference.
type RefExpr struct {
	Path Path
}

func (e *RefExpr) String() string { return e.Path.String() }

func (e *RefExpr) value(ev *conditionEval) Value {
	ev.trace = append(ev.trace, e.Path.String())
	v, _ := Resolve(e.Path, ev.ctx)
	return v
}

func (e *RefExpr) collectRefs(refs []string) []string {
	return appendUnique(refs, e.Path.String())
}

type NotExpr struct {
	Operand Expr
}

func (e *NotExpr) String() string { return "(NOT " + e.Operand.String() + ")" }

func (e *NotExpr) value(ev *conditionEval) Value {
	return Bool(!Truthy(e.Operand.value(ev)))
}

func (e *NotExpr) collectRefs(refs []string) []string { return e.Operand.collectRefs(refs) }

type AndExpr struct {
	Left, Right Expr
}

func (e *AndExpr) String() string {
	return "(" + e.Left.String() + " AND " + e.Right.String() + ")"
}

func (e *AndExpr) value(ev *conditionEval) Value {
	if !Truthy(e.Left.value(ev)) {
		return Bool(false)
	}
	return Bool(Truthy(e.Right.value(ev)))
}

func (e *AndExpr) collectRefs(refs []string) []string {
	return e.Right.collectRefs(e.Left.collectRefs(refs))
}

type OrExpr struct {
	Left, Right Expr
}

func (e *OrExpr) String() string {
	return "(" + e.Left.String() + " OR " + e.Right.String() + ")"
}

func (e *OrExpr) value(ev *conditionEval) Value {
	if Truthy(e.Left.value(ev)) {
		return Bool(true)
	}
	return Bool(Truthy(e.Right.value(ev)))
}

func (e *OrExpr) collectRefs(refs []string) []string {
	return e.Right.collectRefs(e.Left.collectRefs(refs))
}

// CompareExpr applies a comparison operator to two operands.
type CompareExpr struct {
	Op          CompareOp
	Left, Right Expr
}

func (e *CompareExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

func (e *CompareExpr) value(ev *conditionEval) Value {
	left := e.Left.value(ev)
	right := e.Right.value(ev)
	return Bool(Compare(left, right, e.Op))
}

func (e *CompareExpr) collectRefs(refs []string) []string {
	return e.Right.collectRefs(e.Left.collectRefs(refs))
}

// References lists the variable paths an expression mentions, in source order.
func References(e Expr) []string {
	if e == nil {
		return nil
	}
	return e.collectRefs(nil)
}

type conditionEval struct {
	ctx   Context
	trace []string
}

// EvaluateExpr evaluates a parsed condition against ctx.
func EvaluateExpr(e Expr, ctx Context) bool {
	ev := &conditionEval{ctx: ctx}
	return Truthy(e.value(ev))
}

// ConditionParser is a recursive descent parser over condition tokens.
type ConditionParser struct {
	cond     string
	tokens   []ConditionToken
	pos      int
	depth    int
	maxDepth int
}

func (p *ConditionParser) current() ConditionToken {
	if p.pos >= len(p.tokens) {
		return ConditionToken{Kind: CondEOF, Pos: len(p.cond)}
	}
	return p.tokens[p.pos]
}

func (p *ConditionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *ConditionParser) errorf(tok ConditionToken, format string, args ...interface{}) error {
	return NewConditionSyntaxError(p.cond, fmt.Sprintf(format, args...), tok.Text, tok.Pos)
}

func (p *ConditionParser) enter(tok ConditionToken) error {
	p.depth++
	if p.depth > p.maxDepth {
		return p.errorf(tok, "condition nesting exceeds maximum depth of %d", p.maxDepth)
	}
	return nil
}

func (p *ConditionParser) leave() { p.depth-- }

func (p *ConditionParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == CondOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *ConditionParser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == CondAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *ConditionParser) parseNot() (Expr, error) {
	tok := p.current()
	if tok.Kind != CondNot {
		return p.parseComparison()
	}
	if err := p.enter(tok); err != nil {
		return nil, err
	}
	defer p.leave()
	p.advance()
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &NotExpr{Operand: operand}, nil
}

func (p *ConditionParser) parseComparison() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	tok := p.current()
	if tok.Kind != CondComparator {
		return left, nil
	}
	op, ok := ParseCompareOp(tok.Text)
	if !ok {
		return nil, p.errorf(tok, "unknown comparison operator %q", tok.Text)
	}
	p.advance()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &CompareExpr{Op: op, Left: left, Right: right}, nil
}

func (p *ConditionParser) parseOperand() (Expr, error) {
	tok := p.current()
	switch tok.Kind {
	case CondLParen:
		if err := p.enter(tok); err != nil {
			return nil, err
		}
		defer p.leave()
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.current(); closing.Kind != CondRParen {
			return nil, p.errorf(closing, "missing closing parenthesis for '(' at position %d", tok.Pos)
		}
		p.advance()
		return inner, nil

	case CondNumber:
		p.advance()
		return &LiteralExpr{Value: parseNumberLiteral(tok.Text)}, nil

	case CondString:
		p.advance()
		return &LiteralExpr{Value: String(tok.Text)}, nil

	case CondBool:
		p.advance()
		return &LiteralExpr{Value: Bool(strings.EqualFold(tok.Text, "true"))}, nil

	case CondNull:
		p.advance()
		return &LiteralExpr{Value: None()}, nil

	case CondIdentifier:
		path, err := ParsePath(tok.Text)
		if err != nil {
			return nil, p.errorf(tok, "invalid variable reference: %v", err)
		}
		p.advance()
		return &RefExpr{Path: path}, nil

	case CondEOF:
		return nil, p.errorf(tok, "expected operand, got end of condition")
	}
	return nil, p.errorf(tok, "expected operand, got %s %q", tok.Kind, tok.Text)
}

func parseNumberLiteral(text string) Value {
	if !strings.Contains(text, ".") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int(i)
		}
	}
	// ParseFloat yields ±Inf for out of range input
	f, _ := strconv.ParseFloat(text, 64)
	return Float(f)
}

// ParseCondition parses a condition using the global nesting limit. An
// empty condition is the literal true.
func ParseCondition(cond string) (Expr, error) {
	return parseCondition(cond, NewConfigWithDefaults(GetGlobalConfig()).MaxDepth)
}

func parseCondition(cond string, maxDepth int) (Expr, error) {
	if strings.TrimSpace(cond) == "" {
		return &LiteralExpr{Value: Bool(true)}, nil
	}
	tokens, err := TokenizeCondition(cond)
	if err != nil {
		return nil, err
	}
	p := &ConditionParser{cond: cond, tokens: tokens, maxDepth: maxDepth}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Kind != CondEOF {
		return nil, p.errorf(tok, "unexpected trailing token %q", tok.Text)
	}
	return expr, nil
}

// ConditionResult describes one evaluation.
type ConditionResult struct {
	Condition   string   `json:"condition" yaml:"condition"`
	Result      bool     `json:"result" yaml:"result"`
	Tree        string   `json:"tree" yaml:"tree"`
	Explanation string   `json:"explanation" yaml:"explanation"`
	References  []string `json:"references" yaml:"references"`
	// Trace lists references in the order they were resolved. Operands
	// skipped by short-circuiting never appear.
	Trace []string `json:"trace" yaml:"trace"`
}

func explainCondition(cond string, ctx Context, maxDepth int) (*ConditionResult, error) {
	expr, err := parseCondition(cond, maxDepth)
	if err != nil {
		return nil, err
	}
	ev := &conditionEval{ctx: ctx}
	result := Truthy(expr.value(ev))
	tree := expr.String()
	return &ConditionResult{
		Condition:   cond,
		Result:      result,
		Tree:        tree,
		Explanation: fmt.Sprintf("Condition %q parsed as %s evaluated to %t", strings.TrimSpace(cond), tree, result),
		References:  References(expr),
		Trace:       ev.trace,
	}, nil
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
