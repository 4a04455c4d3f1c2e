package run

import (
	"strings"
	"testing"
)

// TestList verifies declared-order listing with group members indented.
func TestList(t *testing.T) {
	d, _ := buildPipeline(t, nil)

	out := List(d.Program, false)

	for _, want := range []string{
		"train", "Train a model",
		"eval", "accuracy", "speed",
		"all", "Run everything",
		"clean",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	trainAt := -1
	evalAt := -1

	for i, line := range lines {
		if strings.Contains(line, "train") && trainAt < 0 {
			trainAt = i
		}

		if strings.Contains(line, "eval") && evalAt < 0 {
			evalAt = i
		}
	}

	if trainAt < 0 || evalAt < 0 || trainAt > evalAt {
		t.Errorf("expected train before eval group:\n%s", out)
	}

	member := false

	for _, line := range lines {
		if strings.HasPrefix(line, "  ") && strings.Contains(line, "accuracy") {
			member = true
		}
	}

	if !member {
		t.Errorf("expected indented group member:\n%s", out)
	}
}

// TestList_Verbose verifies command templates and steps appear in verbose
// listings.
func TestList_Verbose(t *testing.T) {
	d, _ := buildPipeline(t, nil)

	out := List(d.Program, true)

	for _, want := range []string{
		"cmd: train.py {params}",
		"steps: train eval.accuracy eval.speed",
		"shell: rm -rf results",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose listing missing %q:\n%s", want, out)
		}
	}
}

// TestList_Plain verifies non-verbose listings omit command templates.
func TestList_Plain(t *testing.T) {
	d, _ := buildPipeline(t, nil)

	out := List(d.Program, false)

	if strings.Contains(out, "train.py") {
		t.Errorf("plain listing should omit command templates:\n%s", out)
	}
}
