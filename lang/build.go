package lang

import (
	"context"
	"log/slog"
)

// Load parses DSL source text and builds its program model in one step.
func Load(ctx context.Context, src string, rt *Runtime) (*Program, error) {
	forms, err := ParseString(src)
	if err != nil {
		return nil, err
	}

	return Build(ctx, forms, rt)
}

// Build assembles the typed program model from parsed top-level forms.
//
// Building is the one-shot declaration phase: variable expressions run
// exactly once here, type enumerations sourced from shell commands are
// captured here, and env/config files are loaded into the runtime here.
// The returned program is immutable afterward.
func Build(ctx context.Context, forms []*Node, rt *Runtime) (*Program, error) {
	b := &builder{
		ctx: ctx,
		rt:  rt,
		prog: &Program{
			Types:  make(map[string]*TypeDef),
			Tasks:  make(map[string]*TaskDef),
			Groups: make(map[string]*GroupDef),
		},
	}

	b.prog.Global = b.prog.scopes.push(NoScope, "global")

	for _, form := range forms {
		if err := b.buildForm(form); err != nil {
			return nil, err
		}
	}

	if err := b.checkSteps(); err != nil {
		return nil, err
	}

	return b.prog, nil
}

type builder struct {
	ctx  context.Context
	rt   *Runtime
	prog *Program
}

func (b *builder) buildForm(form *Node) error {
	head := form.Head()
	if head == "" {
		return ErrBadForm.With(
			slog.String("reason", "top-level form must begin with a symbol"),
			formAttr(form),
		)
	}

	switch head {
	case "base-cmd":
		return b.buildBaseCmd(form)

	case "load-env":
		return b.buildLoadEnv(form)

	case "load-config":
		return b.buildLoadConfig(form)

	case "types":
		return b.buildTypes(form)

	case "def":
		return b.buildDefs(form, b.prog.Global)

	case "task":
		_, err := b.buildTask(form, nil)

		return err

	case "group":
		return b.buildGroup(form)
	}

	return ErrUnknownForm.With(
		slog.String("form", head),
	).withPos(form.Pos)
}

// formString extracts the single string argument of a one-argument form.
func (b *builder) formString(form *Node) (string, error) {
	if len(form.List) != 2 || form.List[1].Kind != KindString {
		return "", ErrBadForm.With(
			slog.String("reason", "expected exactly one string argument"),
			formAttr(form),
		).withPos(form.Pos)
	}

	return form.List[1].Text, nil
}

func (b *builder) buildBaseCmd(form *Node) error {
	cmd, err := b.formString(form)
	if err != nil {
		return err
	}

	b.prog.BaseCmd = cmd

	return nil
}

func (b *builder) buildLoadEnv(form *Node) error {
	path, err := b.formString(form)
	if err != nil {
		return err
	}

	b.prog.EnvPath = path

	return b.rt.LoadEnvFile(path)
}

func (b *builder) buildLoadConfig(form *Node) error {
	path, err := b.formString(form)
	if err != nil {
		return err
	}

	b.prog.ConfigPath = path

	return b.rt.LoadConfigFile(path)
}

// buildTypes processes a (types (name values) ...) form. Each entry's value
// expression must yield a non-empty collection; the members are captured
// once, even when sourced from a shell command.
func (b *builder) buildTypes(form *Node) error {
	for _, entry := range form.List[1:] {
		if entry.Kind != KindList || len(entry.List) != 2 ||
			entry.List[0].Kind != KindSymbol {
			return ErrBadForm.With(
				slog.String("reason", "type entry must be (name values)"),
				formAttr(entry),
			).withPos(entry.Pos)
		}

		name := entry.List[0].Text

		if _, ok := b.prog.Types[name]; ok {
			return ErrDuplicate.With(
				slog.String("type", name),
			).withPos(entry.Pos)
		}

		expr, err := buildExpr(entry.List[1])
		if err != nil {
			return err
		}

		v, err := b.eval(b.prog.Global, expr)
		if err != nil {
			return err
		}

		if v.Kind != ValueList || len(v.List) == 0 {
			return ErrBadForm.With(
				slog.String("reason", "type must enumerate at least one value"),
				slog.String("type", name),
			).withPos(entry.Pos)
		}

		b.prog.Types[name] = newTypeDef(name, v.List)
	}

	return nil
}

// buildDefs processes a (def entry ...) form, binding each entry into the
// given scope. An entry key is either a bare name or a [name type] pair.
// Entries evaluate in order, so later entries see earlier bindings.
func (b *builder) buildDefs(form *Node, scope ScopeID) error {
	for _, entry := range form.List[1:] {
		if entry.Kind != KindList || len(entry.List) != 2 {
			return ErrBadForm.With(
				slog.String("reason", "definition must be (name value)"),
				formAttr(entry),
			).withPos(entry.Pos)
		}

		if err := b.bindDef(scope, entry.List[0], entry.List[1]); err != nil {
			return err
		}
	}

	return nil
}

// bindDef evaluates one definition and installs the binding.
func (b *builder) bindDef(scope ScopeID, key, value *Node) error {
	name, typeName, err := defKey(key)
	if err != nil {
		return err
	}

	var typ *TypeDef

	if typeName != "" {
		t, ok := b.prog.Types[typeName]
		if !ok {
			return ErrBadForm.With(
				slog.String("reason", "unknown type"),
				slog.String("type", typeName),
				slog.String("name", name),
			).withPos(key.Pos)
		}

		typ = t
	}

	expr, err := buildExpr(value)
	if err != nil {
		return err
	}

	v, err := b.eval(scope, expr)
	if err != nil {
		return err
	}

	def := &VarDef{Name: name, Type: typ}

	switch v.Kind {
	case ValueAbsent:
		def.Absent = true

	case ValueString:
		def.Raw = v.Str

	case ValueList:
		return ErrBadForm.With(
			slog.String("reason", "variable value must be a string"),
			slog.String("name", name),
		).withPos(value.Pos)
	}

	// A placeholder-free typed value can be checked immediately; templates
	// wait until usage-phase expansion produces the final string.
	if typ != nil && !def.Absent && !hasPlaceholder(def.Raw) {
		if err := typ.Validate(def.Raw); err != nil {
			return err
		}
	}

	b.prog.scopes.bind(scope, def)

	return nil
}

// defKey splits a definition key into its name and optional type name.
func defKey(key *Node) (name, typeName string, err error) {
	switch key.Kind {
	case KindSymbol:
		return key.Text, "", nil

	case KindList:
		if len(key.List) == 2 &&
			key.List[0].Kind == KindSymbol && key.List[1].Kind == KindSymbol {
			return key.List[0].Text, key.List[1].Text, nil
		}
	}

	return "", "", ErrBadForm.With(
		slog.String("reason", "definition key must be name or [name type]"),
		slog.String("form", key.String()),
	).withPos(key.Pos)
}

// buildTask processes a (task name prop ...) form. Structural properties
// (title, desc, meta, cmd, shell, steps) shape the task record; every other
// property becomes a variable binding in the task's scope.
func (b *builder) buildTask(form *Node, group *GroupDef) (*TaskDef, error) {
	if len(form.List) < 2 || form.List[1].Kind != KindSymbol {
		return nil, ErrBadForm.With(
			slog.String("reason", "task requires a name symbol"),
			formAttr(form),
		).withPos(form.Pos)
	}

	short := form.List[1].Text
	name := short
	parent := b.prog.Global

	if group != nil {
		name = group.Name + "." + short
		parent = group.Scope
	}

	if err := b.checkNameFree(name, form.Pos); err != nil {
		return nil, err
	}

	task := &TaskDef{
		Name:  name,
		Meta:  make(map[string]string),
		Scope: b.prog.scopes.push(parent, name),
	}

	if group != nil {
		task.Group = group.Name
	}

	props := form.List[2:]

	// An optional bare string after the name is the title.
	if len(props) > 0 && props[0].Kind == KindString {
		task.Title = props[0].Text
		props = props[1:]
	}

	for _, prop := range props {
		if err := b.buildTaskProp(task, prop); err != nil {
			return nil, err
		}
	}

	if task.Cmd == "" && group != nil {
		task.Cmd = group.Cmd
	}

	b.prog.Tasks[name] = task
	b.prog.TaskOrder = append(b.prog.TaskOrder, name)

	return task, nil
}

func (b *builder) buildTaskProp(task *TaskDef, prop *Node) error {
	head := prop.Head()
	if head == "" {
		return ErrBadForm.With(
			slog.String("reason", "task property must be (key value)"),
			slog.String("task", task.Name),
			formAttr(prop),
		).withPos(prop.Pos)
	}

	switch head {
	case "title":
		return b.propString(prop, &task.Title)

	case "desc":
		return b.propString(prop, &task.Desc)

	case "meta":
		return b.propMeta(prop, task.Meta)

	case "cmd":
		return b.propTemplate(task.Scope, prop, &task.Cmd)

	case "shell":
		return b.propTemplate(task.Scope, prop, &task.Shell)

	case "steps":
		return b.propSteps(prop, &task.Steps)
	}

	// params and any other property bind as task-scoped variables
	if len(prop.List) != 2 {
		return ErrBadForm.With(
			slog.String("reason", "task property must be (key value)"),
			slog.String("task", task.Name),
			formAttr(prop),
		).withPos(prop.Pos)
	}

	return b.bindProp(task.Scope, prop.List[0], prop.List[1])
}

// bindProp installs a task or group property as a variable binding. A bare
// symbol value stores its text literally; strings and calls evaluate as
// any other definition.
func (b *builder) bindProp(scope ScopeID, key, value *Node) error {
	if value.Kind == KindSymbol {
		value = &Node{Kind: KindString, Text: value.Text, Pos: value.Pos}
	}

	return b.bindDef(scope, key, value)
}

// propString extracts a literal string property.
func (b *builder) propString(prop *Node, out *string) error {
	v, err := b.formString(prop)
	if err != nil {
		return err
	}

	*out = v

	return nil
}

// propTemplate evaluates a property expression eagerly and stores its raw
// string result, placeholders intact.
func (b *builder) propTemplate(scope ScopeID, prop *Node, out *string) error {
	if len(prop.List) != 2 {
		return ErrBadForm.With(
			slog.String("reason", "expected exactly one value"),
			formAttr(prop),
		).withPos(prop.Pos)
	}

	expr, err := buildExpr(prop.List[1])
	if err != nil {
		return err
	}

	v, err := b.eval(scope, expr)
	if err != nil {
		return err
	}

	s, err := v.asString()
	if err != nil {
		return err
	}

	*out = s

	return nil
}

// propMeta collects (meta (key "value") ...) pairs.
func (b *builder) propMeta(prop *Node, meta map[string]string) error {
	for _, pair := range prop.List[1:] {
		if pair.Kind != KindList || len(pair.List) != 2 ||
			pair.List[0].Kind != KindSymbol ||
			pair.List[1].Kind != KindString {
			return ErrBadForm.With(
				slog.String("reason", "meta entry must be (key \"value\")"),
				slog.String("form", pair.String()),
			).withPos(pair.Pos)
		}

		meta[pair.List[0].Text] = pair.List[1].Text
	}

	return nil
}

// propSteps collects step references, each a bare (possibly dot-qualified)
// task name.
func (b *builder) propSteps(prop *Node, steps *[]Reference) error {
	for _, ref := range prop.List[1:] {
		if ref.Kind != KindSymbol {
			return ErrBadForm.With(
				slog.String("reason", "step must be a task name"),
				slog.String("form", ref.String()),
			).withPos(ref.Pos)
		}

		*steps = append(*steps, Reference(ref.Text))
	}

	return nil
}

// buildGroup processes a (group name prop-or-task ...) form. Member tasks
// nest inside the group form; their scopes chain through the group's scope
// and they inherit the group's cmd when they declare none of their own.
func (b *builder) buildGroup(form *Node) error {
	if len(form.List) < 2 || form.List[1].Kind != KindSymbol {
		return ErrBadForm.With(
			slog.String("reason", "group requires a name symbol"),
			formAttr(form),
		).withPos(form.Pos)
	}

	name := form.List[1].Text

	if err := b.checkNameFree(name, form.Pos); err != nil {
		return err
	}

	group := &GroupDef{
		Name:  name,
		Scope: b.prog.scopes.push(b.prog.Global, name),
	}

	// Group registration precedes member construction so qualified task
	// names collide correctly against the group namespace.
	b.prog.Groups[name] = group
	b.prog.GroupOrder = append(b.prog.GroupOrder, name)

	props := form.List[2:]

	// An optional bare string after the name is the title.
	if len(props) > 0 && props[0].Kind == KindString {
		group.Title = props[0].Text
		props = props[1:]
	}

	for _, prop := range props {
		head := prop.Head()
		if head == "" {
			return ErrBadForm.With(
				slog.String("reason", "group property must be (key value)"),
				slog.String("group", name),
				formAttr(prop),
			).withPos(prop.Pos)
		}

		switch head {
		case "title":
			if err := b.propString(prop, &group.Title); err != nil {
				return err
			}

		case "desc":
			if err := b.propString(prop, &group.Desc); err != nil {
				return err
			}

		case "cmd":
			err := b.propTemplate(group.Scope, prop, &group.Cmd)
			if err != nil {
				return err
			}

		case "task":
			task, err := b.buildTask(prop, group)
			if err != nil {
				return err
			}

			group.Tasks = append(group.Tasks, task)

		case "def":
			if err := b.buildDefs(prop, group.Scope); err != nil {
				return err
			}

		default:
			if len(prop.List) != 2 {
				return ErrBadForm.With(
					slog.String("reason", "group property must be (key value)"),
					slog.String("group", name),
					formAttr(prop),
				).withPos(prop.Pos)
			}

			err := b.bindProp(group.Scope, prop.List[0], prop.List[1])
			if err != nil {
				return err
			}
		}
	}

	// Late cmd declarations still apply to members that declared none.
	for _, task := range group.Tasks {
		if task.Cmd == "" {
			task.Cmd = group.Cmd
		}
	}

	return nil
}

// checkNameFree guards the shared task/group namespace.
func (b *builder) checkNameFree(name string, pos Position) error {
	_, isTask := b.prog.Tasks[name]
	_, isGroup := b.prog.Groups[name]

	if isTask || isGroup {
		return ErrDuplicate.With(
			slog.String("name", name),
		).withPos(pos)
	}

	return nil
}

// checkSteps verifies that every step reference names a declared task or
// group, resolving group-relative short names. Forward references are fine
// because this runs after all forms are built.
func (b *builder) checkSteps() error {
	for _, name := range b.prog.TaskOrder {
		task := b.prog.Tasks[name]

		for _, ref := range task.Steps {
			if _, ok := b.prog.ResolveReference(task, ref); !ok {
				return ErrUnknownTask.With(
					slog.String("task", name),
					slog.String("step", string(ref)),
				)
			}
		}
	}

	return nil
}

// ResolveReference resolves a step reference from the perspective of the
// referring task: an exact task name, then a sibling within the same group,
// then a group name. The returned name is fully qualified.
func (p *Program) ResolveReference(from *TaskDef, ref Reference) (string, bool) {
	name := string(ref)

	if _, ok := p.Tasks[name]; ok {
		return name, true
	}

	if from != nil && from.Group != "" {
		qualified := from.Group + "." + name
		if _, ok := p.Tasks[qualified]; ok {
			return qualified, true
		}
	}

	if _, ok := p.Groups[name]; ok {
		return name, true
	}

	return "", false
}

// formAttr renders a form for error attributes. Forms containing nested
// lists pretty-print across indented lines via [Node.Dump] so multi-line
// declarations stay readable in diagnostics.
func formAttr(n *Node) slog.Attr {
	for _, item := range n.List {
		if item.Kind == KindList {
			return slog.String("form", n.Dump(true))
		}
	}

	return slog.String("form", n.String())
}

func (b *builder) eval(scope ScopeID, e *Expr) (Value, error) {
	c := &evalCtx{ctx: b.ctx, prog: b.prog, scope: scope, rt: b.rt}

	return c.eval(e)
}
