package run

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/tasq/lang"
)

// scriptRunner satisfies lang.Runner with canned outputs, recording every
// executed command in order.
type scriptRunner struct {
	outputs map[string]string
	fail    map[string]error
	ran     []string
}

func (r *scriptRunner) Output(_ context.Context, command string) (string, error) {
	if err, ok := r.fail[command]; ok {
		return "", err
	}

	out, ok := r.outputs[command]
	if !ok {
		return "", fmt.Errorf("unexpected command: %s", command)
	}

	return out, nil
}

func (r *scriptRunner) Run(_ context.Context, command string) error {
	if err, ok := r.fail[command]; ok {
		return err
	}

	r.ran = append(r.ran, command)

	return nil
}

const pipeline = `
(base-cmd "python")

(types (model-type '("small" "medium" "large")))

(def (data "test")
     ([model model-type] "small")
     (debug (or (env "DEBUG") "true")))

(task train
      (title "Train a model")
      (params "--model {model} --data {data} --debug {debug}")
      (cmd "train.py {params}"))

(group eval
       (cmd "eval.py {params}")
       (task accuracy (params "--model {model} --metric accuracy"))
       (task speed (params "--model {model} --metric speed")))

(task all
      (title "Run everything")
      (steps train eval.accuracy eval.speed))

(task clean
      (shell "rm -rf results"))
`

// buildPipeline loads the pipeline program against a recording runner.
func buildPipeline(t *testing.T, env map[string]string) (*Dispatcher, *scriptRunner) {
	t.Helper()

	if env == nil {
		env = map[string]string{}
	}

	exec := &scriptRunner{}
	rt := &lang.Runtime{
		Env:    env,
		Config: map[string]string{},
		Exec:   exec,
		Now:    func() time.Time { return time.Unix(0, 0).UTC() },
	}

	prog, err := lang.Load(context.Background(), pipeline, rt)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	return NewDispatcher(prog, rt), exec
}

// TestDispatcher_RunTask verifies scope resolution, interpolation, and base
// command assembly for a single task.
func TestDispatcher_RunTask(t *testing.T) {
	d, exec := buildPipeline(t, nil)

	if err := d.Dispatch(context.Background(), []string{"train"}, nil); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	want := []string{
		"python train.py --model small --data test --debug true",
	}

	if !slices.Equal(exec.ran, want) {
		t.Errorf("ran = %v, want %v", exec.ran, want)
	}

	if d.State() != StateDone {
		t.Errorf("state = %v, want done", d.State())
	}
}

// TestDispatcher_EnvOverride verifies environment lookups feed defaults.
func TestDispatcher_EnvOverride(t *testing.T) {
	d, exec := buildPipeline(t, map[string]string{"DEBUG": "false"})

	if err := d.Dispatch(context.Background(), []string{"train"}, nil); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	if !strings.HasSuffix(exec.ran[0], "--debug false") {
		t.Errorf("expected env value in command, got %q", exec.ran[0])
	}
}

// TestDispatcher_Steps verifies depth-first declared-order step execution.
func TestDispatcher_Steps(t *testing.T) {
	d, exec := buildPipeline(t, nil)

	if err := d.Dispatch(context.Background(), []string{"all"}, nil); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	want := []string{
		"python train.py --model small --data test --debug true",
		"python eval.py --model small --metric accuracy",
		"python eval.py --model small --metric speed",
	}

	if !slices.Equal(exec.ran, want) {
		t.Errorf("ran = %v, want %v", exec.ran, want)
	}
}

// TestDispatcher_Dedup verifies each task executes at most once per
// invocation.
func TestDispatcher_Dedup(t *testing.T) {
	d, exec := buildPipeline(t, nil)

	err := d.Dispatch(context.Background(), []string{"train", "all", "train"}, nil)
	if err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	if len(exec.ran) != 3 {
		t.Errorf("ran %d commands, want 3: %v", len(exec.ran), exec.ran)
	}
}

// TestDispatcher_Group verifies a bare group name runs members in declared
// order.
func TestDispatcher_Group(t *testing.T) {
	d, exec := buildPipeline(t, nil)

	if err := d.Dispatch(context.Background(), []string{"eval"}, nil); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	want := []string{
		"python eval.py --model small --metric accuracy",
		"python eval.py --model small --metric speed",
	}

	if !slices.Equal(exec.ran, want) {
		t.Errorf("ran = %v, want %v", exec.ran, want)
	}
}

// TestDispatcher_ExtraArgs verifies extra arguments append to the requested
// task only.
func TestDispatcher_ExtraArgs(t *testing.T) {
	d, exec := buildPipeline(t, nil)

	extra := []string{"--epochs", "5"}

	err := d.Dispatch(context.Background(), []string{"train"}, extra)
	if err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	if !strings.HasSuffix(exec.ran[0], "--epochs 5") {
		t.Errorf("expected extra args appended, got %q", exec.ran[0])
	}

	d, exec = buildPipeline(t, nil)

	err = d.Dispatch(context.Background(), []string{"all"}, extra)
	if err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	for _, command := range exec.ran {
		if strings.Contains(command, "--epochs") {
			t.Errorf("extra args leaked into step command %q", command)
		}
	}
}

// TestDispatcher_ShellBypass verifies shell tasks skip the base command.
func TestDispatcher_ShellBypass(t *testing.T) {
	d, exec := buildPipeline(t, nil)

	if err := d.Dispatch(context.Background(), []string{"clean"}, nil); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	want := []string{"rm -rf results"}

	if !slices.Equal(exec.ran, want) {
		t.Errorf("ran = %v, want %v", exec.ran, want)
	}
}

// TestDispatcher_FailFast verifies the first failing step aborts the rest.
func TestDispatcher_FailFast(t *testing.T) {
	d, exec := buildPipeline(t, nil)

	boom := errors.New("exit status 1")
	exec.fail = map[string]error{
		"python train.py --model small --data test --debug true": boom,
	}

	err := d.Dispatch(context.Background(), []string{"all"}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected command failure, got %v", err)
	}

	if len(exec.ran) != 0 {
		t.Errorf("expected no commands after failure, ran %v", exec.ran)
	}

	if d.State() != StateFailed {
		t.Errorf("state = %v, want failed", d.State())
	}
}

// TestDispatcher_Unknown verifies classification and fuzzy suggestions for
// unrecognized names.
func TestDispatcher_Unknown(t *testing.T) {
	d, _ := buildPipeline(t, nil)

	err := d.Dispatch(context.Background(), []string{"trin"}, nil)
	if !errors.Is(err, lang.ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}

	ue := &UnknownTaskError{}
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnknownTaskError, got %T", err)
	}

	if !slices.Contains(ue.Suggestions, "train") {
		t.Errorf("expected train suggested, got %v", ue.Suggestions)
	}

	if !strings.Contains(ue.Error(), "did you mean") {
		t.Errorf("expected suggestion text, got %q", ue.Error())
	}
}

// TestDispatcher_UnknownListsAvailable verifies the error names every valid
// task and group even when nothing matches closely.
func TestDispatcher_UnknownListsAvailable(t *testing.T) {
	d, _ := buildPipeline(t, nil)

	err := d.Dispatch(context.Background(), []string{"zzz"}, nil)

	ue := &UnknownTaskError{}
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnknownTaskError, got %T", err)
	}

	if len(ue.Suggestions) != 0 {
		t.Errorf("expected no suggestions for zzz, got %v", ue.Suggestions)
	}

	msg := ue.Error()

	for _, name := range []string{"train", "eval", "all", "clean"} {
		if !strings.Contains(msg, name) {
			t.Errorf("expected %q listed in %q", name, msg)
		}
	}
}

// TestShellRunner verifies real command execution, output capture, and
// exit code classification.
func TestShellRunner(t *testing.T) {
	var out strings.Builder

	r := &ShellRunner{Stdout: &out, Stderr: &out}

	got, err := r.Output(context.Background(), "printf 'a\\nb\\n'")
	if err != nil {
		t.Fatalf("output error: %v", err)
	}

	if got != "a\nb\n" {
		t.Errorf("output = %q, want %q", got, "a\nb\n")
	}

	err = r.Run(context.Background(), "exit 7")
	if !errors.Is(err, lang.ErrExternalCommand) {
		t.Fatalf("expected ErrExternalCommand, got %v", err)
	}

	ce := &CommandError{}
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CommandError, got %T", err)
	}

	if ce.Code != 7 {
		t.Errorf("exit code = %d, want 7", ce.Code)
	}
}
