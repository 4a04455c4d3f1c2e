package lang

import (
	"log/slog"
)

// ExprKind discriminates the variants of a built expression.
type ExprKind int

const (
	// ExprLiteral is a string literal containing no placeholders.
	ExprLiteral ExprKind = iota

	// ExprTemplate is a string literal containing {name} placeholders,
	// stored raw: placeholders are not expanded at declaration time
	// because the variables they reference may not yet be resolvable.
	ExprTemplate

	// ExprVarRef is a bare symbol resolved through the scope chain.
	ExprVarRef

	// ExprCall is a built-in function application.
	ExprCall

	// ExprList is a quoted list of literal items.
	ExprList

	// ExprNil is the empty list, which evaluates to an absent value.
	ExprNil
)

// Builtin enumerates the closed set of callable operations. The set is
// fixed by design: dispatch is a single exhaustive switch rather than an
// open-ended lookup, so the compiler checks completeness.
type Builtin int

const (
	BuiltinOr Builtin = iota
	BuiltinAnd
	BuiltinIf
	BuiltinEqual
	BuiltinEnv
	BuiltinConf
	BuiltinGitRoot
	BuiltinTimestamp
	BuiltinShell
	BuiltinFromShell
)

// String returns the surface name of the builtin.
func (b Builtin) String() string {
	switch b {
	case BuiltinOr:
		return "or"
	case BuiltinAnd:
		return "and"
	case BuiltinIf:
		return "if"
	case BuiltinEqual:
		return "equal?"
	case BuiltinEnv:
		return "env"
	case BuiltinConf:
		return "conf"
	case BuiltinGitRoot:
		return "git-root"
	case BuiltinTimestamp:
		return "current-timestamp"
	case BuiltinShell:
		return "shell"
	case BuiltinFromShell:
		return "from-shell"
	default:
		return "unknown"
	}
}

func builtinByName(name string) (Builtin, bool) {
	switch name {
	case "or":
		return BuiltinOr, true
	case "and":
		return BuiltinAnd, true
	case "if":
		return BuiltinIf, true
	case "equal?":
		return BuiltinEqual, true
	case "env":
		return BuiltinEnv, true
	case "conf":
		return BuiltinConf, true
	case "git-root":
		return BuiltinGitRoot, true
	case "current-timestamp":
		return BuiltinTimestamp, true
	case "shell":
		return BuiltinShell, true
	case "from-shell":
		return BuiltinFromShell, true
	}

	return 0, false
}

// Expr is the tagged expression variant built from syntax by the program
// builder. Exactly the fields relevant to Kind are set.
type Expr struct {
	Kind  ExprKind
	Text  string   // literal/template text, or the referenced name
	Op    Builtin  // for ExprCall
	Args  []*Expr  // for ExprCall
	Items []string // for ExprList
	Pos   Position
}

// hasPlaceholder reports whether s contains at least one {name} placeholder.
func hasPlaceholder(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}

		j := i + 1
		for j < len(s) && s[j] != '{' && s[j] != '}' {
			j++
		}

		if j < len(s) && s[j] == '}' && j > i+1 {
			return true
		}
	}

	return false
}

// buildExpr translates a syntax node into a typed expression.
func buildExpr(n *Node) (*Expr, error) {
	switch n.Kind {
	case KindString:
		kind := ExprLiteral
		if hasPlaceholder(n.Text) {
			kind = ExprTemplate
		}

		return &Expr{Kind: kind, Text: n.Text, Pos: n.Pos}, nil

	case KindSymbol:
		return &Expr{Kind: ExprVarRef, Text: n.Text, Pos: n.Pos}, nil

	case KindList:
		return buildCall(n)

	case KindQuote:
		return buildQuoted(n)
	}

	return nil, ErrBadForm.With(
		slog.String("form", n.String()),
	)
}

func buildCall(n *Node) (*Expr, error) {
	if len(n.List) == 0 {
		return &Expr{Kind: ExprNil, Pos: n.Pos}, nil
	}

	head := n.List[0]
	if head.Kind != KindSymbol {
		return nil, ErrBadForm.With(
			slog.String("reason", "function position must be a symbol"),
			slog.String("form", n.String()),
		)
	}

	op, ok := builtinByName(head.Text)
	if !ok {
		return nil, ErrBadForm.With(
			slog.String("reason", "unknown function"),
			slog.String("function", head.Text),
		)
	}

	if err := checkArity(op, len(n.List)-1); err != nil {
		return nil, err
	}

	args := make([]*Expr, 0, len(n.List)-1)

	for _, arg := range n.List[1:] {
		e, err := buildExpr(arg)
		if err != nil {
			return nil, err
		}

		args = append(args, e)
	}

	return &Expr{Kind: ExprCall, Op: op, Args: args, Pos: n.Pos}, nil
}

// checkArity validates argument counts for the fixed-arity builtins.
func checkArity(op Builtin, n int) error {
	want := -1 // variadic

	switch op {
	case BuiltinIf:
		want = 3
	case BuiltinEqual:
		want = 2
	case BuiltinEnv, BuiltinConf, BuiltinShell, BuiltinFromShell:
		want = 1
	case BuiltinGitRoot, BuiltinTimestamp:
		want = 0
	case BuiltinOr, BuiltinAnd:
	}

	if want >= 0 && n != want {
		return ErrBadForm.With(
			slog.String("function", op.String()),
			slog.Int("want", want),
			slog.Int("got", n),
		)
	}

	return nil
}

// buildQuoted handles 'x forms. A quoted list yields its literal items;
// quoting anything else defers to the inner form.
func buildQuoted(n *Node) (*Expr, error) {
	if len(n.List) == 0 {
		return &Expr{Kind: ExprNil, Pos: n.Pos}, nil
	}

	inner := n.List[0]
	if inner.Kind != KindList {
		return buildExpr(inner)
	}

	items := make([]string, 0, len(inner.List))

	for _, item := range inner.List {
		switch item.Kind {
		case KindSymbol, KindString:
			items = append(items, item.Text)

		default:
			return nil, ErrNonLiteralQuoted.With(
				slog.String("form", item.String()),
			)
		}
	}

	return &Expr{Kind: ExprList, Items: items, Pos: n.Pos}, nil
}
