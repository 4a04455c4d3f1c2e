package lang

import (
	"log/slog"
	"strings"
)

// TypeDef is a named, closed set of allowed string values used to validate
// a variable's resolved value. The allowed set comes either from a literal
// list in source or from the newline-split stdout of a shell command
// captured once at build time.
type TypeDef struct {
	Name    string
	Allowed []string // declared order, preserved for diagnostics

	members map[string]struct{}
}

func newTypeDef(name string, allowed []string) *TypeDef {
	t := &TypeDef{
		Name:    name,
		Allowed: allowed,
		members: make(map[string]struct{}, len(allowed)),
	}

	for _, v := range allowed {
		t.members[v] = struct{}{}
	}

	return t
}

// Validate reports whether candidate is a member of the allowed set.
// Matching is exact string equality: no case folding, no trimming.
// A non-member is an [ErrType] carrying the candidate and the full
// allowed set.
func (t *TypeDef) Validate(candidate string) error {
	if _, ok := t.members[candidate]; ok {
		return nil
	}

	return ErrType.With(
		slog.String("type", t.Name),
		slog.String("value", candidate),
		slog.String("allowed", strings.Join(t.Allowed, ", ")),
	)
}

// VarDef is a variable binding held by a scope. Raw is the declaration-
// phase value: expression calls have already run, but any {name}
// placeholders inside string results remain unexpanded until usage-phase
// interpolation.
type VarDef struct {
	Name   string
	Type   *TypeDef
	Raw    string
	Absent bool // the defining expression evaluated to an absent value

	scope ScopeID // defining scope
}

// Reference names a task (name) or a group-qualified task (group.name)
// in a steps dependency list.
type Reference string

// TaskDef is a named, executable unit.
type TaskDef struct {
	Name  string // fully qualified, e.g. "eval.accuracy"
	Title string
	Desc  string
	Meta  map[string]string
	Cmd   string // command template appended to the base command
	Shell string // complete shell command, bypassing the base command
	Steps []Reference
	Scope ScopeID
	Group string // owning group name, or ""
}

// Describe returns the task's long description when present, falling back
// to its short title.
func (t *TaskDef) Describe() string {
	if t.Desc != "" {
		return t.Desc
	}

	return t.Title
}

// GroupDef is a named container of tasks sharing a command template and a
// scope. Member tasks without a cmd of their own inherit the group's, and
// their scopes chain through the group's scope.
type GroupDef struct {
	Name  string
	Title string
	Desc  string
	Cmd   string
	Scope ScopeID
	Tasks []*TaskDef // declared order
}

// Describe returns the group's long description when present, falling back
// to its short title.
func (g *GroupDef) Describe() string {
	if g.Desc != "" {
		return g.Desc
	}

	return g.Title
}

// Program is the typed model built from one source file. It is immutable
// after construction: variable defaults are resolved once during the build
// pass, never re-evaluated per task run.
type Program struct {
	BaseCmd    string
	EnvPath    string
	ConfigPath string
	Types      map[string]*TypeDef
	Tasks      map[string]*TaskDef
	Groups     map[string]*GroupDef
	TaskOrder  []string // declared order of fully qualified task names
	GroupOrder []string
	Global     ScopeID

	scopes scopeArena
}

// Task returns the task with the given fully qualified name.
func (p *Program) Task(name string) (*TaskDef, bool) {
	t, ok := p.Tasks[name]

	return t, ok
}

// Group returns the group with the given name.
func (p *Program) Group(name string) (*GroupDef, bool) {
	g, ok := p.Groups[name]

	return g, ok
}

// Names returns every runnable name in declared order: each fully
// qualified task name plus each group name.
func (p *Program) Names() []string {
	names := make([]string, 0, len(p.TaskOrder)+len(p.GroupOrder))
	names = append(names, p.TaskOrder...)
	names = append(names, p.GroupOrder...)

	return names
}
