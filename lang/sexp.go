package lang

import (
	"strings"
)

// NodeKind discriminates the syntactic forms produced by the reader.
type NodeKind int

const (
	// KindSymbol is a bare atom such as a form name or variable reference.
	KindSymbol NodeKind = iota

	// KindString is a double-quoted string literal with escapes resolved.
	KindString

	// KindList is a parenthesized sequence of nodes.
	KindList

	// KindQuote is a quoted form ('x), holding exactly one child node.
	KindQuote
)

// String returns a string representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindQuote:
		return "quote"
	default:
		return "unknown"
	}
}

// Position locates a node in the source text.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Node is one element of the syntax tree produced by the reader.
// Exactly one of Text or List is meaningful, depending on Kind:
// Text holds symbol or string content, and List holds list elements
// (or the single quoted form for [KindQuote]).
type Node struct {
	Kind NodeKind
	Text string
	List []*Node
	Pos  Position
}

// Sym reports whether the node is the symbol name.
func (n *Node) Sym(name string) bool {
	return n != nil && n.Kind == KindSymbol && n.Text == name
}

// Head returns the leading symbol of a list node, or "" if the node is not
// a list or does not begin with a symbol.
func (n *Node) Head() string {
	if n == nil || n.Kind != KindList || len(n.List) == 0 {
		return ""
	}

	if n.List[0].Kind != KindSymbol {
		return ""
	}

	return n.List[0].Text
}

// String renders the node as S-expression source text on a single line.
func (n *Node) String() string {
	var sb strings.Builder

	n.write(&sb)

	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("()")

		return
	}

	switch n.Kind {
	case KindSymbol:
		sb.WriteString(quoteSymbol(n.Text))

	case KindString:
		sb.WriteByte('"')
		sb.WriteString(quoteString(n.Text))
		sb.WriteByte('"')

	case KindList:
		sb.WriteByte('(')

		for i, item := range n.List {
			if i > 0 {
				sb.WriteByte(' ')
			}

			item.write(sb)
		}

		sb.WriteByte(')')

	case KindQuote:
		sb.WriteByte('\'')

		if len(n.List) > 0 {
			n.List[0].write(sb)
		}
	}
}

// Dump renders the node as S-expression source text. When pretty is true,
// nested lists are indented one level per depth.
func (n *Node) Dump(pretty bool) string {
	if !pretty {
		return n.String()
	}

	return n.dumpIndent("  ", 0)
}

func (n *Node) dumpIndent(indent string, level int) string {
	switch n.Kind {
	case KindSymbol, KindString:
		return n.String()

	case KindQuote:
		if len(n.List) == 0 {
			return "'()"
		}

		return "'" + n.List[0].dumpIndent(indent, level)

	case KindList:
		if len(n.List) == 0 {
			return "()"
		}

		inner := strings.Repeat(indent, level+1)
		items := make([]string, 0, len(n.List))

		for _, item := range n.List {
			items = append(items, item.dumpIndent(indent, level+1))
		}

		return "(\n" + inner + strings.Join(items, "\n"+inner) +
			"\n" + strings.Repeat(indent, level) + ")"
	}

	return ""
}

// quoteString escapes a string literal's content for rendering.
func quoteString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
		"\b", `\b`,
		"\f", `\f`,
	)

	return r.Replace(s)
}

// quoteSymbol escapes characters that would otherwise terminate or alter a
// bare symbol when rendered back to source text.
func quoteSymbol(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`"`, `\"`,
		`(`, `\(`,
		`)`, `\)`,
		`[`, `\[`,
		`]`, `\]`,
		` `, `\ `,
		`;`, `\;`,
	)

	return r.Replace(s)
}
