package lang

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// ValueKind discriminates evaluation results.
type ValueKind int

const (
	// ValueAbsent marks a missing result: an unset environment variable,
	// a missing config key, an exhausted or-chain, or the empty list.
	ValueAbsent ValueKind = iota

	// ValueString is a single string result.
	ValueString

	// ValueList is a collection result, produced only by from-shell and
	// quoted lists (used to populate type enumerations).
	ValueList
)

// Value is the result of evaluating an expression.
type Value struct {
	Kind ValueKind
	Str  string
	List []string
}

func absentValue() Value         { return Value{Kind: ValueAbsent} }
func stringValue(s string) Value { return Value{Kind: ValueString, Str: s} }
func listValue(v []string) Value { return Value{Kind: ValueList, List: v} }

// present reports whether the value participates as "present" in the
// short-circuit operators: absent and empty results do not.
func (v Value) present() bool {
	switch v.Kind {
	case ValueString:
		return v.Str != ""
	case ValueList:
		return len(v.List) > 0
	}

	return false
}

// asString coerces a value to a string operand. Absent values coerce to
// the empty string; collections are not valid string operands.
func (v Value) asString() (string, error) {
	switch v.Kind {
	case ValueAbsent:
		return "", nil
	case ValueString:
		return v.Str, nil
	}

	return "", ErrBadForm.With(
		slog.String("reason", "expected string value, got list"),
	)
}

// evalCtx holds the state threaded through expression evaluation.
type evalCtx struct {
	ctx   context.Context
	prog  *Program
	scope ScopeID
	rt    *Runtime
}

// eval evaluates an expression left to right with short-circuit semantics.
// String results are declaration-phase values: {name} placeholders they
// contain remain raw for usage-phase interpolation.
func (c *evalCtx) eval(e *Expr) (Value, error) {
	switch e.Kind {
	case ExprLiteral, ExprTemplate:
		return stringValue(e.Text), nil

	case ExprVarRef:
		return c.evalVarRef(e)

	case ExprList:
		return listValue(e.Items), nil

	case ExprNil:
		return absentValue(), nil

	case ExprCall:
		return c.evalCall(e)
	}

	return absentValue(), ErrBadForm.With(
		slog.String("reason", "unhandled expression kind"),
	)
}

func (c *evalCtx) evalVarRef(e *Expr) (Value, error) {
	v, err := c.prog.Resolve(c.scope, e.Text)
	if err != nil {
		return absentValue(), err
	}

	if v.Absent {
		return absentValue(), nil
	}

	return stringValue(v.Raw), nil
}

// evalCall dispatches over the closed builtin set. Arity was already
// checked when the call was built.
func (c *evalCtx) evalCall(e *Expr) (Value, error) {
	switch e.Op {
	case BuiltinOr:
		return c.evalOr(e.Args)

	case BuiltinAnd:
		return c.evalAnd(e.Args)

	case BuiltinIf:
		return c.evalIf(e.Args)

	case BuiltinEqual:
		return c.evalEqual(e.Args)

	case BuiltinEnv:
		return c.evalEnv(e.Args)

	case BuiltinConf:
		return c.evalConf(e.Args)

	case BuiltinGitRoot:
		return c.evalGitRoot()

	case BuiltinTimestamp:
		return stringValue(c.rt.Now().Format(time.RFC3339)), nil

	case BuiltinShell:
		return c.evalShell(e.Args)

	case BuiltinFromShell:
		return c.evalFromShell(e.Args)
	}

	return absentValue(), ErrBadForm.With(
		slog.String("reason", "unknown builtin"),
	)
}

// evalOr returns the first present operand, skipping evaluation of the
// rest. All operands absent yields absent.
func (c *evalCtx) evalOr(args []*Expr) (Value, error) {
	for _, arg := range args {
		v, err := c.eval(arg)
		if err != nil {
			return absentValue(), err
		}

		if v.present() {
			return v, nil
		}
	}

	return absentValue(), nil
}

// evalAnd returns the last operand's value only if every operand was
// present; the first absent operand short-circuits to absent.
func (c *evalCtx) evalAnd(args []*Expr) (Value, error) {
	last := absentValue()

	for _, arg := range args {
		v, err := c.eval(arg)
		if err != nil {
			return absentValue(), err
		}

		if !v.present() {
			return absentValue(), nil
		}

		last = v
	}

	return last, nil
}

// evalIf evaluates the then branch when the condition is present, and the
// else branch otherwise. A condition equal to "false" after trimming
// counts as absent so equal? composes with if.
func (c *evalCtx) evalIf(args []*Expr) (Value, error) {
	cond, err := c.eval(args[0])
	if err != nil {
		return absentValue(), err
	}

	taken := cond.present()

	if taken && cond.Kind == ValueString &&
		strings.TrimSpace(cond.Str) == "false" {
		taken = false
	}

	if taken {
		return c.eval(args[1])
	}

	return c.eval(args[2])
}

// evalEqual compares both operands as whitespace-stripped strings and
// returns the boolean as the string "true" or "false". Stripping applies
// to the final resolved operand strings only.
func (c *evalCtx) evalEqual(args []*Expr) (Value, error) {
	a, err := c.evalString(args[0])
	if err != nil {
		return absentValue(), err
	}

	b, err := c.evalString(args[1])
	if err != nil {
		return absentValue(), err
	}

	if strings.TrimSpace(a) == strings.TrimSpace(b) {
		return stringValue("true"), nil
	}

	return stringValue("false"), nil
}

func (c *evalCtx) evalEnv(args []*Expr) (Value, error) {
	name, err := c.evalString(args[0])
	if err != nil {
		return absentValue(), err
	}

	v, ok := c.rt.Getenv(name)
	if !ok {
		return absentValue(), nil
	}

	return stringValue(v), nil
}

func (c *evalCtx) evalConf(args []*Expr) (Value, error) {
	key, err := c.evalString(args[0])
	if err != nil {
		return absentValue(), err
	}

	v, ok := c.rt.Conf(key)
	if !ok {
		return absentValue(), nil
	}

	return stringValue(v), nil
}

// evalGitRoot reports the absolute path of the enclosing repository root.
// Not being inside a repository fails the whole evaluation.
func (c *evalCtx) evalGitRoot() (Value, error) {
	out, err := c.rt.Exec.Output(c.ctx, "git rev-parse --show-toplevel")
	if err != nil {
		return absentValue(), ErrExternalCommand.Wrap(err).With(
			slog.String("command", "git rev-parse --show-toplevel"),
		)
	}

	return stringValue(strings.TrimRight(out, "\n")), nil
}

// evalShell runs the command and returns its captured stdout with the
// trailing newline trimmed. A non-zero exit is an [ErrExternalCommand].
func (c *evalCtx) evalShell(args []*Expr) (Value, error) {
	command, err := c.evalString(args[0])
	if err != nil {
		return absentValue(), err
	}

	out, err := c.rt.Exec.Output(c.ctx, command)
	if err != nil {
		return absentValue(), ErrExternalCommand.Wrap(err).With(
			slog.String("command", command),
			slog.String("output", out),
		)
	}

	return stringValue(strings.TrimRight(out, "\n")), nil
}

// evalFromShell runs the command and splits its captured stdout into a
// collection, one element per non-blank line.
func (c *evalCtx) evalFromShell(args []*Expr) (Value, error) {
	command, err := c.evalString(args[0])
	if err != nil {
		return absentValue(), err
	}

	out, err := c.rt.Exec.Output(c.ctx, command)
	if err != nil {
		return absentValue(), ErrExternalCommand.Wrap(err).With(
			slog.String("command", command),
			slog.String("output", out),
		)
	}

	items := make([]string, 0)

	for line := range strings.Lines(out) {
		if trimmed := strings.TrimRight(line, "\n"); trimmed != "" {
			items = append(items, trimmed)
		}
	}

	return listValue(items), nil
}

// evalString evaluates an operand and coerces it to a string.
func (c *evalCtx) evalString(e *Expr) (string, error) {
	v, err := c.eval(e)
	if err != nil {
		return "", err
	}

	return v.asString()
}
