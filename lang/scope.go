package lang

import (
	"log/slog"
	"strings"
)

// ScopeID addresses a scope record in a program's arena.
//
// Scopes form a tree (global → group → task) but are stored as a flat
// arena of records holding parent indices, so the chain can be walked
// upward without parent pointers or ownership cycles.
type ScopeID int

// NoScope is the parent sentinel of the global scope.
const NoScope ScopeID = -1

type scopeRec struct {
	parent   ScopeID
	label    string
	bindings map[string]*VarDef
	names    []string // declared order, for diagnostics
}

type scopeArena struct {
	recs []scopeRec
}

// push appends a new scope with the given parent and returns its ID.
func (a *scopeArena) push(parent ScopeID, label string) ScopeID {
	a.recs = append(a.recs, scopeRec{
		parent:   parent,
		label:    label,
		bindings: make(map[string]*VarDef),
	})

	return ScopeID(len(a.recs) - 1)
}

// bind installs a variable definition in the scope. Rebinding a name in the
// same scope replaces the previous definition (later definitions win),
// mirroring ordered evaluation of def entries.
func (a *scopeArena) bind(id ScopeID, v *VarDef) {
	rec := &a.recs[id]

	if _, ok := rec.bindings[v.Name]; !ok {
		rec.names = append(rec.names, v.Name)
	}

	rec.bindings[v.Name] = v
	v.scope = id
}

// parent returns the parent of the given scope, or [NoScope].
func (a *scopeArena) parent(id ScopeID) ScopeID {
	if id < 0 || int(id) >= len(a.recs) {
		return NoScope
	}

	return a.recs[id].parent
}

// lookup resolves name starting at scope id and walking parent indices
// upward, stopping at the first match.
func (a *scopeArena) lookup(id ScopeID, name string) (*VarDef, bool) {
	for id != NoScope {
		rec := &a.recs[id]

		if v, ok := rec.bindings[name]; ok {
			return v, true
		}

		id = rec.parent
	}

	return nil, false
}

// chain returns the labels of the scopes walked from id to the root,
// innermost first. Used to report the chain in resolution errors.
func (a *scopeArena) chain(id ScopeID) []string {
	labels := make([]string, 0, 3)

	for id != NoScope {
		labels = append(labels, a.recs[id].label)
		id = a.recs[id].parent
	}

	return labels
}

// Resolve looks up name in the given scope chain. A missing binding is an
// [ErrUndefinedVariable] reporting the name and the chain walked.
func (p *Program) Resolve(scope ScopeID, name string) (*VarDef, error) {
	v, ok := p.scopes.lookup(scope, name)
	if !ok {
		return nil, ErrUndefinedVariable.With(
			slog.String("name", name),
			slog.String("chain", strings.Join(p.scopes.chain(scope), " -> ")),
		)
	}

	return v, nil
}
