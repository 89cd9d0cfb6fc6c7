package docforge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenVariable
	TokenIf
	TokenElse
	TokenEndIf
	TokenSection
	TokenEndSection
	TokenInclude
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenVariable:
		return "variable"
	case TokenIf:
		return "if"
	case TokenElse:
		return "else"
	case TokenEndIf:
		return "endif"
	case TokenSection:
		return "section"
	case TokenEndSection:
		return "endsection"
	case TokenInclude:
		return "include"
	}
	return "unknown"
}

// Token represents a lexed template token. Value holds the literal text, the
// variable path, the condition or the section name depending on Type.
type Token struct {
	Type   TokenType
	Value  string
	Pos    int
	Line   int
	Column int
}

var (
	// tag content: keyword followed by optional arguments
	tagRegex = regexp.MustCompile(`^([A-Za-z_]\w*)(?:\s+([\s\S]*))?$`)
	// section and include names
	sectionNameRegex = regexp.MustCompile(`^\w+$`)
)

// parseOptions carry the per-engine knobs the tokenizer and parser honor.
type parseOptions struct {
	maxDepth   int
	trimBlocks bool
	logger     *slog.Logger
}

func defaultParseOptions() parseOptions {
	config := NewConfigWithDefaults(GetGlobalConfig())
	return parseOptions{maxDepth: config.MaxDepth, trimBlocks: config.TrimBlocks, logger: GetLogger()}
}

// Tokenize splits a template into tokens. Tokens lexed before the first
// error are returned together with it.
func Tokenize(input string) ([]Token, error) {
	tokens, errs := tokenize(input, defaultParseOptions())
	if len(errs) > 0 {
		return tokens, errs[0]
	}
	return tokens, nil
}

// positions maps byte offsets to 1-based line and column numbers.
type positions struct {
	input      string
	lineStarts []int
}

func newPositions(input string) *positions {
	starts := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &positions{input: input, lineStarts: starts}
}

func (p *positions) at(offset int) (line, column int) {
	idx := sort.Search(len(p.lineStarts), func(i int) bool { return p.lineStarts[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, utf8.RuneCountInString(p.input[p.lineStarts[idx]:offset]) + 1
}

// tokenize lexes the whole template and keeps going after recoverable
// errors so validation can report every problem at once.
func tokenize(input string, opts parseOptions) ([]Token, []error) {
	var (
		tokens []Token
		errs   []error
		pos    = newPositions(input)
		i      = 0
	)

	logger := opts.logger
	debug := logger != nil && logger.Enabled(context.Background(), slog.LevelDebug)
	if debug {
		logger.Debug("starting tokenization", "input_length", len(input))
	}

	newToken := func(typ TokenType, value string, offset int) Token {
		line, col := pos.at(offset)
		return Token{Type: typ, Value: value, Pos: offset, Line: line, Column: col}
	}
	fail := func(offset int, format string, args ...interface{}) {
		line, col := pos.at(offset)
		errs = append(errs, NewTemplateSyntaxError(fmt.Sprintf(format, args...), line, col))
	}

	for i < len(input) {
		start := nextMarker(input, i)
		if start < 0 {
			tokens = append(tokens, newToken(TokenText, input[i:], i))
			break
		}
		if start > i {
			tokens = append(tokens, newToken(TokenText, input[i:start], i))
		}

		isVariable := input[start+1] == '{'
		var end int
		if isVariable {
			end = strings.Index(input[start+2:], "}}")
			if end >= 0 {
				end += start + 2
			}
		} else {
			end = tagEnd(input, start+2)
		}
		if end < 0 {
			fail(start, "unterminated marker %q", input[start:start+2])
			break
		}
		content := strings.TrimSpace(input[start+2 : end])
		i = end + 2

		if isVariable {
			path, err := ParsePath(content)
			if err != nil {
				fail(start, "invalid variable marker: %v", err)
				continue
			}
			tokens = append(tokens, newToken(TokenVariable, path.String(), start))
			if debug {
				logger.Debug("found variable", "path", path.String(), "line", tokens[len(tokens)-1].Line)
			}
			continue
		}

		tok, err := parseTag(content)
		if err != nil {
			fail(start, "%v", err)
			continue
		}
		t := newToken(tok.Type, tok.Value, start)
		tokens = append(tokens, t)
		if debug {
			logger.Debug("found tag", "type", t.Type.String(), "value", t.Value, "line", t.Line)
		}

		if opts.trimBlocks {
			if strings.HasPrefix(input[i:], "\r\n") {
				i += 2
			} else if strings.HasPrefix(input[i:], "\n") {
				i++
			}
		}
	}

	return tokens, errs
}

// nextMarker returns the offset of the next "{{" or "{%" at or after from.
func nextMarker(input string, from int) int {
	for j := from; j+1 < len(input); j++ {
		if input[j] == '{' && (input[j+1] == '{' || input[j+1] == '%') {
			return j
		}
	}
	return -1
}

// tagEnd returns the offset of the "%}" closing a block tag whose content
// starts at from. Quoted literals are skipped so a condition may compare
// against "%}". An unmatched quote is treated as plain text.
func tagEnd(input string, from int) int {
	for j := from; j+1 < len(input); j++ {
		switch c := input[j]; c {
		case '%':
			if input[j+1] == '}' {
				return j
			}
		case '"', '\'':
			if k := closingQuote(input, j); k > 0 {
				j = k
			}
		}
	}
	return -1
}

// closingQuote returns the offset of the quote matching input[start], or -1.
func closingQuote(input string, start int) int {
	quote := input[start]
	for k := start + 1; k < len(input); k++ {
		switch input[k] {
		case '\\':
			k++
		case quote:
			return k
		}
	}
	return -1
}

// parseTag turns the inside of a {% %} marker into a token
func parseTag(content string) (Token, error) {
	if content == "" {
		return Token{}, fmt.Errorf("empty block tag")
	}
	m := tagRegex.FindStringSubmatch(content)
	if m == nil {
		return Token{}, fmt.Errorf("malformed block tag %q", content)
	}
	keyword, args := m[1], strings.TrimSpace(m[2])

	switch keyword {
	case "if":
		if args == "" {
			return Token{}, fmt.Errorf("if tag requires a condition")
		}
		return Token{Type: TokenIf, Value: args}, nil
	case "else", "endif", "endsection":
		if args != "" {
			return Token{}, fmt.Errorf("unexpected argument %q for %s tag", args, keyword)
		}
		typ := map[string]TokenType{"else": TokenElse, "endif": TokenEndIf, "endsection": TokenEndSection}[keyword]
		return Token{Type: typ}, nil
	case "section", "include":
		if args == "" {
			return Token{}, fmt.Errorf("%s tag requires a name", keyword)
		}
		if !sectionNameRegex.MatchString(args) {
			return Token{}, fmt.Errorf("invalid section name %q", args)
		}
		typ := TokenSection
		if keyword == "include" {
			typ = TokenInclude
		}
		return Token{Type: typ, Value: args}, nil
	}
	return Token{}, fmt.Errorf("unknown tag %q", keyword)
}
