package lang

import (
	"context"
	"log/slog"
	"strings"
)

// MaxInterpolationDepth bounds nested placeholder expansion. A reference
// chain of exactly this many bindings still resolves; one more fails with
// [ErrMaxDepth].
const MaxInterpolationDepth = 10

// bindingKey identifies a binding by its defining scope and name, so the
// same name bound in different scopes counts as distinct bindings during
// cycle detection.
type bindingKey struct {
	scope ScopeID
	name  string
}

// expander performs usage-phase interpolation of {name} placeholders.
//
// Bindings under expansion are tracked in the active set. Resolution walks
// the scope chain from the usage scope and skips active bindings, so a
// binding whose value references its own name extends the next outer
// binding instead of recursing into itself. Exhausting the chain with only
// active candidates is a true cycle.
type expander struct {
	ctx    context.Context
	prog   *Program
	rt     *Runtime
	usage  ScopeID
	active map[bindingKey]struct{}
	chain  []string
}

// Expand substitutes every {name} placeholder in raw, recursively expanding
// the values the placeholders resolve to. Braces that do not delimit a
// well-formed placeholder pass through literally.
func (p *Program) Expand(
	ctx context.Context, rt *Runtime, scope ScopeID, raw string,
) (string, error) {
	e := &expander{
		ctx:    ctx,
		prog:   p,
		rt:     rt,
		usage:  scope,
		active: make(map[bindingKey]struct{}),
	}

	return e.expand(raw)
}

// ResolveValue resolves a single variable by name and returns its fully
// expanded, validated value.
func (p *Program) ResolveValue(
	ctx context.Context, rt *Runtime, scope ScopeID, name string,
) (string, error) {
	e := &expander{
		ctx:    ctx,
		prog:   p,
		rt:     rt,
		usage:  scope,
		active: make(map[bindingKey]struct{}),
	}

	return e.substitute(name)
}

func (e *expander) expand(raw string) (string, error) {
	var out strings.Builder

	for i := 0; i < len(raw); {
		if raw[i] != '{' {
			out.WriteByte(raw[i])
			i++

			continue
		}

		j := i + 1
		for j < len(raw) && raw[j] != '{' && raw[j] != '}' {
			j++
		}

		if j >= len(raw) || raw[j] != '}' || j == i+1 {
			// not a placeholder: literal brace
			out.WriteByte(raw[i])
			i++

			continue
		}

		expanded, err := e.substitute(raw[i+1 : j])
		if err != nil {
			return "", err
		}

		out.WriteString(expanded)
		i = j + 1
	}

	return out.String(), nil
}

// substitute resolves one placeholder name and expands its value.
func (e *expander) substitute(name string) (string, error) {
	if len(e.chain) >= MaxInterpolationDepth {
		return "", ErrMaxDepth.With(
			slog.String("name", name),
			slog.Int("depth", MaxInterpolationDepth),
			slog.String("chain", strings.Join(e.chain, " -> ")),
		)
	}

	v, err := e.resolve(name)
	if err != nil {
		return "", err
	}

	if v.Absent {
		return "", ErrUnresolved.With(
			slog.String("name", name),
		)
	}

	key := bindingKey{scope: v.scope, name: v.Name}

	e.active[key] = struct{}{}
	e.chain = append(e.chain, name)

	expanded, err := e.expand(v.Raw)

	delete(e.active, key)
	e.chain = e.chain[:len(e.chain)-1]

	if err != nil {
		return "", err
	}

	if v.Type != nil {
		if err := v.Type.Validate(expanded); err != nil {
			return "", err
		}
	}

	return expanded, nil
}

// resolve walks the scope chain from the usage scope, skipping bindings
// already under expansion. Finding only active candidates is a cycle;
// finding none at all is an undefined variable.
func (e *expander) resolve(name string) (*VarDef, error) {
	sawActive := false

	for id := e.usage; id != NoScope; id = e.prog.scopes.parent(id) {
		v, ok := e.prog.scopes.recs[id].bindings[name]
		if !ok {
			continue
		}

		if _, busy := e.active[bindingKey{scope: v.scope, name: v.Name}]; busy {
			sawActive = true

			continue
		}

		return v, nil
	}

	if sawActive {
		return nil, ErrCircular.With(
			slog.String("name", name),
			slog.String("chain", strings.Join(append(e.chain, name), " -> ")),
		)
	}

	return nil, ErrUnresolved.Wrap(ErrUndefinedVariable).With(
		slog.String("name", name),
	)
}
