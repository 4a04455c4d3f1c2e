package lang

import (
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

// lineComment is the character that begins a comment running to end of line.
const lineComment = ';'

// ParseReader parses top-level forms from an io.Reader.
func ParseReader(r io.Reader) ([]*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return ParseString(string(data))
}

// ParseString parses DSL source text into a sequence of top-level forms.
// Every top-level form must be a parenthesized list; the reader performs no
// semantic validation beyond that, leaving unknown forms to the builder.
func ParseString(src string) ([]*Node, error) {
	p := &parser{
		input: []byte(src),
		pos:   0,
		line:  1,
		col:   1,
	}

	forms := make([]*Node, 0)

	for {
		p.skipWhitespaceAndComments()

		if p.eof() {
			break
		}

		if p.peek() != '(' {
			return nil, p.errorf("expected '(' to begin a top-level form")
		}

		form, err := p.parseNode()
		if err != nil {
			return nil, err
		}

		forms = append(forms, form)
	}

	return forms, nil
}

// parser holds the reader state.
type parser struct {
	input []byte
	pos   int
	line  int
	col   int
}

// parseNode parses a single S-expression at the current position.
func (p *parser) parseNode() (*Node, error) {
	p.skipWhitespaceAndComments()

	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}

	pos := p.position()

	switch p.peek() {
	case '(':
		return p.parseList(')')

	case '[':
		return p.parseList(']')

	case ')', ']':
		return nil, p.errorf("unexpected closing %q", string(p.peek()))

	case '"':
		return p.parseString()

	case '\'':
		p.advance()

		inner, err := p.parseNode()
		if err != nil {
			return nil, err
		}

		return &Node{Kind: KindQuote, List: []*Node{inner}, Pos: pos}, nil

	default:
		return p.parseAtom()
	}
}

// parseList parses a delimited list. Square brackets are accepted as list
// delimiters interchangeable with parentheses, which keeps typed definition
// keys like ([model model-type] ...) structured instead of mangled atoms.
func (p *parser) parseList(closing rune) (*Node, error) {
	pos := p.position()

	p.advance() // skip opening delimiter

	list := make([]*Node, 0)

	for {
		p.skipWhitespaceAndComments()

		if p.eof() {
			return nil, &SyntaxError{
				Msg:    "unclosed " + delimName(closing),
				Pos:    pos,
				Source: string(p.input),
			}
		}

		if p.peek() == closing {
			p.advance()

			break
		}

		if p.peek() == ')' || p.peek() == ']' {
			return nil, p.errorf("mismatched closing %q", string(p.peek()))
		}

		item, err := p.parseNode()
		if err != nil {
			return nil, err
		}

		list = append(list, item)
	}

	return &Node{Kind: KindList, List: list, Pos: pos}, nil
}

func delimName(closing rune) string {
	if closing == ']' {
		return "bracket"
	}

	return "parenthesis"
}

// parseString parses a double-quoted string literal with escape handling.
func (p *parser) parseString() (*Node, error) {
	pos := p.position()

	p.advance() // skip opening quote

	var text []rune

	for !p.eof() {
		ch := p.peek()

		switch ch {
		case '"':
			p.advance()

			return &Node{
				Kind: KindString,
				Text: string(text),
				Pos:  pos,
			}, nil

		case '\\':
			p.advance()

			if p.eof() {
				break
			}

			esc := p.peek()
			p.advance()

			switch esc {
			case 'n':
				text = append(text, '\n')
			case 'r':
				text = append(text, '\r')
			case 't':
				text = append(text, '\t')
			case 'b':
				text = append(text, '\b')
			case 'f':
				text = append(text, '\f')
			default:
				text = append(text, esc)
			}

		default:
			text = append(text, ch)
			p.advance()
		}
	}

	return nil, &SyntaxError{
		Msg:    "unterminated string literal",
		Pos:    pos,
		Source: string(p.input),
	}
}

// parseAtom parses a bare symbol. The reader-level aliases "nil" (empty
// list) and "t" (symbol true) follow the original dialect.
func (p *parser) parseAtom() (*Node, error) {
	pos := p.position()
	start := p.pos

	for !p.eof() {
		ch := p.peek()
		if unicode.IsSpace(ch) || isDelimiter(ch) || ch == lineComment {
			break
		}

		p.advance()
	}

	token := string(p.input[start:p.pos])

	switch token {
	case "nil":
		return &Node{Kind: KindList, Pos: pos}, nil

	case "t":
		return &Node{Kind: KindSymbol, Text: "true", Pos: pos}, nil
	}

	return &Node{Kind: KindSymbol, Text: token, Pos: pos}, nil
}

func isDelimiter(ch rune) bool {
	switch ch {
	case '(', ')', '[', ']', '"', '\'':
		return true
	}

	return false
}

// Helper methods

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}

	r, _ := utf8.DecodeRune(p.input[p.pos:])

	return r
}

func (p *parser) advance() {
	if p.eof() {
		return
	}

	r, size := utf8.DecodeRune(p.input[p.pos:])

	p.pos += size
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) position() Position {
	return Position{
		Offset: p.pos,
		Line:   p.line,
		Column: p.col,
	}
}

func (p *parser) skipWhitespaceAndComments() {
	for !p.eof() {
		ch := p.peek()

		if unicode.IsSpace(ch) {
			p.advance()

			continue
		}

		if ch == lineComment {
			for !p.eof() && p.peek() != '\n' {
				p.advance()
			}

			continue
		}

		break
	}
}

func (p *parser) errorf(format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	return &SyntaxError{
		Msg:    msg,
		Pos:    p.position(),
		Source: string(p.input),
	}
}
