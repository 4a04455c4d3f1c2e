package lang

import (
	"errors"
	"strings"
	"testing"
)

// TestResolve_ChainReport verifies the scope chain named in resolution
// failures, innermost scope first.
func TestResolve_ChainReport(t *testing.T) {
	rt := testRuntime(nil, nil, nil)
	prog := loadProgram(t, `
		(group eval
		       (cmd "eval.py")
		       (task run))
	`, rt)

	task, _ := prog.Task("eval.run")

	_, err := prog.Resolve(task.Scope, "ghost")
	if !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "eval.run -> eval -> global") {
		t.Errorf("expected scope chain in message, got %q", msg)
	}
}

// TestResolve_TaskScopeShadowsGlobal verifies lookup stops at the first
// binding walking outward.
func TestResolve_TaskScopeShadowsGlobal(t *testing.T) {
	rt := testRuntime(nil, nil, nil)
	prog := loadProgram(t, `
		(def (data "global"))
		(task train (data "local"))
	`, rt)

	task, _ := prog.Task("train")

	v, err := prog.Resolve(task.Scope, "data")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}

	if v.Raw != "local" {
		t.Errorf("raw = %q, want %q", v.Raw, "local")
	}

	v, err = prog.Resolve(prog.Global, "data")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}

	if v.Raw != "global" {
		t.Errorf("raw = %q, want %q", v.Raw, "global")
	}
}

// TestProgram_Names verifies declared-order enumeration of runnables.
func TestProgram_Names(t *testing.T) {
	rt := testRuntime(nil, nil, nil)
	prog := loadProgram(t, `
		(task b)
		(task a)
		(group g (task c))
	`, rt)

	got := prog.Names()
	want := []string{"b", "a", "g.c", "g"}

	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
