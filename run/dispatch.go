package run

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ardnew/mung"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/tasq/lang"
	"github.com/ardnew/tasq/log"
)

// State tracks dispatcher progress, mostly for trace logging.
type State int

const (
	StateIdle State = iota
	StateSteps
	StateExpanding
	StateExecuting
	StateDone
	StateFailed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSteps:
		return "steps"
	case StateExpanding:
		return "expanding"
	case StateExecuting:
		return "executing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

// Dispatcher runs tasks from a built program. Each task executes at most
// once per dispatcher, no matter how many step lists or invocation
// arguments name it.
type Dispatcher struct {
	Program *lang.Program
	Runtime *lang.Runtime

	executed map[string]struct{}
	state    State
}

// NewDispatcher returns a dispatcher over the given program and runtime.
func NewDispatcher(prog *lang.Program, rt *lang.Runtime) *Dispatcher {
	return &Dispatcher{
		Program:  prog,
		Runtime:  rt,
		executed: make(map[string]struct{}),
	}
}

// State returns the dispatcher's current state.
func (d *Dispatcher) State() State { return d.state }

// Dispatch runs the named tasks and groups in order. Extra arguments are
// appended to the command line of each directly requested task, never to
// its steps or to group members.
//
// Execution is fail-fast: the first failing command aborts the remaining
// work and its error propagates.
func (d *Dispatcher) Dispatch(ctx context.Context, names, extra []string) error {
	for _, name := range names {
		var err error

		switch {
		case d.taskExists(name):
			err = d.runTask(ctx, d.Program.Tasks[name], extra)

		case d.groupExists(name):
			err = d.runGroup(ctx, d.Program.Groups[name])

		default:
			err = d.unknown(name)
		}

		if err != nil {
			d.state = StateFailed

			return err
		}
	}

	d.state = StateDone

	return nil
}

func (d *Dispatcher) taskExists(name string) bool {
	_, ok := d.Program.Tasks[name]

	return ok
}

func (d *Dispatcher) groupExists(name string) bool {
	_, ok := d.Program.Groups[name]

	return ok
}

// runGroup runs the group's member tasks in declared order.
func (d *Dispatcher) runGroup(ctx context.Context, group *lang.GroupDef) error {
	log.Debug("running group",
		slog.String("group", group.Name),
		slog.Int("tasks", len(group.Tasks)),
	)

	for _, task := range group.Tasks {
		if err := d.runTask(ctx, task, nil); err != nil {
			return err
		}
	}

	return nil
}

// runTask runs the task's steps depth-first in declared order, then the
// task's own command.
func (d *Dispatcher) runTask(
	ctx context.Context,
	task *lang.TaskDef,
	extra []string,
) error {
	if _, done := d.executed[task.Name]; done {
		log.Debug("skipping task, already executed",
			slog.String("task", task.Name),
		)

		return nil
	}

	d.executed[task.Name] = struct{}{}

	if err := d.runSteps(ctx, task); err != nil {
		return err
	}

	d.state = StateExpanding

	command, err := d.command(ctx, task)
	if err != nil {
		return err
	}

	if command == "" {
		// steps-only task
		return nil
	}

	if len(extra) > 0 {
		command += " " + strings.Join(extra, " ")
	}

	d.state = StateExecuting

	log.Info("running task",
		slog.String("task", task.Name),
		slog.String("command", command),
	)

	return d.Runtime.Exec.Run(ctx, command)
}

func (d *Dispatcher) runSteps(ctx context.Context, task *lang.TaskDef) error {
	if len(task.Steps) == 0 {
		return nil
	}

	d.state = StateSteps

	for _, ref := range task.Steps {
		name, ok := d.Program.ResolveReference(task, ref)
		if !ok {
			return d.unknown(string(ref))
		}

		if step, ok := d.Program.Task(name); ok {
			if err := d.runTask(ctx, step, nil); err != nil {
				return err
			}

			continue
		}

		group, _ := d.Program.Group(name)
		if err := d.runGroup(ctx, group); err != nil {
			return err
		}
	}

	return nil
}

// command produces the task's fully expanded command line. A shell
// property is a complete command and bypasses the base command; a cmd
// property is joined after the base command.
func (d *Dispatcher) command(
	ctx context.Context,
	task *lang.TaskDef,
) (string, error) {
	if task.Shell != "" {
		return d.Program.Expand(ctx, d.Runtime, task.Scope, task.Shell)
	}

	if task.Cmd == "" {
		return "", nil
	}

	expanded, err := d.Program.Expand(ctx, d.Runtime, task.Scope, task.Cmd)
	if err != nil {
		return "", err
	}

	return mung.Make(
		mung.WithSubjectItems(expanded),
		mung.WithDelim(" "),
		mung.WithPrefixItems(d.Program.BaseCmd),
		mung.WithFilter(func(s string) bool {
			return strings.TrimSpace(s) != ""
		}),
	).String(), nil
}

// unknown classifies an unrecognized name, suggesting close matches from
// the program's runnables and listing every valid name.
func (d *Dispatcher) unknown(name string) error {
	available := d.Program.Names()
	matches := fuzzy.Find(name, available)

	suggestions := make([]string, 0, 3)

	for _, m := range matches {
		if len(suggestions) == cap(suggestions) {
			break
		}

		suggestions = append(suggestions, m.Str)
	}

	return &UnknownTaskError{
		Name:        name,
		Suggestions: suggestions,
		Available:   available,
	}
}

// UnknownTaskError reports a requested name that matches no task or group.
type UnknownTaskError struct {
	Name        string
	Suggestions []string // closest known names, best first
	Available   []string // every valid task and group name, declared order
}

// Error implements the error interface.
func (e *UnknownTaskError) Error() string {
	var sb strings.Builder

	sb.WriteString("unknown task or group: ")
	sb.WriteString(e.Name)

	if len(e.Suggestions) > 0 {
		sb.WriteString(" (did you mean ")
		sb.WriteString(strings.Join(e.Suggestions, ", "))
		sb.WriteString("?)")
	}

	if len(e.Available) > 0 {
		sb.WriteString("; available: ")
		sb.WriteString(strings.Join(e.Available, ", "))
	}

	return sb.String()
}

// Unwrap ties every UnknownTaskError to the [lang.ErrUnknownTask] sentinel.
func (e *UnknownTaskError) Unwrap() error { return lang.ErrUnknownTask }
