package lang

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const sampleProgram = `
(base-cmd "python")

(types (model-type '("small" "medium" "large")))

(def (data "test")
     ([model model-type] "small")
     (debug (or (env "DEBUG") "true")))

(task train
      (title "Train a model")
      (params "--model {model} --data {data} --debug {debug}")
      (cmd "train.py {params}")
      (output "{root}/results/{timestamp}/{model}/{data}"))

(group eval
       (cmd "eval.py {params}")
       (task accuracy
             (title "Evaluate accuracy")
             (params "--model {model} --metric accuracy"))
       (task speed
             (title "Evaluate speed")
             (params "--model {model} --metric speed")))

(task all
      (title "Run everything")
      (steps train eval.accuracy eval.speed))
`

// TestBuild_Program verifies the model assembled from a representative
// source file.
func TestBuild_Program(t *testing.T) {
	rt := testRuntime(nil, nil, nil)

	prog, err := Load(context.Background(), sampleProgram, rt)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if prog.BaseCmd != "python" {
		t.Errorf("base cmd = %q, want %q", prog.BaseCmd, "python")
	}

	typ, ok := prog.Types["model-type"]
	if !ok {
		t.Fatal("missing type model-type")
	}

	if len(typ.Allowed) != 3 || typ.Allowed[0] != "small" {
		t.Errorf("unexpected allowed set: %v", typ.Allowed)
	}

	wantTasks := []string{"train", "eval.accuracy", "eval.speed", "all"}
	if len(prog.TaskOrder) != len(wantTasks) {
		t.Fatalf("task order = %v, want %v", prog.TaskOrder, wantTasks)
	}

	for i, name := range wantTasks {
		if prog.TaskOrder[i] != name {
			t.Errorf("task order[%d] = %q, want %q", i, prog.TaskOrder[i], name)
		}
	}

	accuracy, ok := prog.Task("eval.accuracy")
	if !ok {
		t.Fatal("missing task eval.accuracy")
	}

	if accuracy.Cmd != "eval.py {params}" {
		t.Errorf("inherited cmd = %q, want group cmd", accuracy.Cmd)
	}

	if accuracy.Group != "eval" {
		t.Errorf("group = %q, want %q", accuracy.Group, "eval")
	}

	all, _ := prog.Task("all")
	if len(all.Steps) != 3 || all.Steps[1] != "eval.accuracy" {
		t.Errorf("unexpected steps: %v", all.Steps)
	}

	group, ok := prog.Group("eval")
	if !ok {
		t.Fatal("missing group eval")
	}

	if len(group.Tasks) != 2 {
		t.Errorf("group has %d tasks, want 2", len(group.Tasks))
	}
}

// TestBuild_EagerDefinitions verifies that variable expressions run exactly
// once, during the build.
func TestBuild_EagerDefinitions(t *testing.T) {
	exec := &fakeRunner{outputs: map[string]string{"date +%s": "1700000000\n"}}
	rt := testRuntime(nil, nil, exec)

	prog, err := Load(context.Background(),
		`(def (stamp (shell "date +%s")))`, rt)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if len(exec.ran) != 1 {
		t.Fatalf("command ran %d times, want once", len(exec.ran))
	}

	v, err := prog.Resolve(prog.Global, "stamp")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}

	if v.Raw != "1700000000" {
		t.Errorf("raw = %q, want %q", v.Raw, "1700000000")
	}
}

// TestBuild_TypesFromShell verifies shell-sourced type enumerations split
// per non-blank line.
func TestBuild_TypesFromShell(t *testing.T) {
	exec := &fakeRunner{outputs: map[string]string{
		"ls models": "small\n\nmedium\nlarge\n",
	}}
	rt := testRuntime(nil, nil, exec)

	prog, err := Load(context.Background(),
		`(types (model-type (from-shell "ls models")))`, rt)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	typ := prog.Types["model-type"]
	want := []string{"small", "medium", "large"}

	if len(typ.Allowed) != len(want) {
		t.Fatalf("allowed = %v, want %v", typ.Allowed, want)
	}

	for i, v := range want {
		if typ.Allowed[i] != v {
			t.Errorf("allowed[%d] = %q, want %q", i, typ.Allowed[i], v)
		}
	}
}

// TestBuild_TypeValidation verifies literal typed values are checked at
// build time.
func TestBuild_TypeValidation(t *testing.T) {
	src := `
		(types (model-type '("small" "large")))
		(def ([model model-type] "enormous"))
	`

	_, err := Load(context.Background(), src, testRuntime(nil, nil, nil))
	if !errors.Is(err, ErrType) {
		t.Errorf("expected ErrType, got %v", err)
	}
}

// TestBuild_Errors verifies build-time rejection of malformed programs.
func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "unknown form",
			src:  `(bogus "x")`,
			want: ErrUnknownForm,
		},
		{
			name: "duplicate task",
			src:  `(task a (cmd "1")) (task a (cmd "2"))`,
			want: ErrDuplicate,
		},
		{
			name: "task name collides with group",
			src:  `(group a (task b)) (task a (cmd "1"))`,
			want: ErrDuplicate,
		},
		{
			name: "duplicate type",
			src:  `(types (m '("a")) (m '("b")))`,
			want: ErrDuplicate,
		},
		{
			name: "empty type",
			src:  `(types (m nil))`,
			want: ErrBadForm,
		},
		{
			name: "unknown type in definition",
			src:  `(def ([x ghost-type] "v"))`,
			want: ErrBadForm,
		},
		{
			name: "unknown step target",
			src:  `(task a (steps ghost))`,
			want: ErrUnknownTask,
		},
		{
			name: "list-valued definition",
			src:  `(def (x '("a" "b")))`,
			want: ErrBadForm,
		},
		{
			name: "non-literal in quoted list",
			src:  `(types (m '((env "A") "b")))`,
			want: ErrNonLiteralQuoted,
		},
		{
			name: "base-cmd without argument",
			src:  `(base-cmd)`,
			want: ErrBadForm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.src, testRuntime(nil, nil, nil))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestBuild_LaterDefinitionWins verifies ordered rebinding within a scope.
func TestBuild_LaterDefinitionWins(t *testing.T) {
	src := `
		(def (x "first"))
		(def (x "second"))
	`

	v := rawOf(t, src, testRuntime(nil, nil, nil))

	if v.Raw != "second" {
		t.Errorf("raw = %q, want %q", v.Raw, "second")
	}
}

// TestBuild_StepsResolveSiblings verifies group-relative step references.
func TestBuild_StepsResolveSiblings(t *testing.T) {
	src := `
		(group eval
		       (cmd "eval.py")
		       (task accuracy)
		       (task all (steps accuracy)))
	`

	prog, err := Load(context.Background(), src, testRuntime(nil, nil, nil))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	from, _ := prog.Task("eval.all")

	name, ok := prog.ResolveReference(from, "accuracy")
	if !ok || name != "eval.accuracy" {
		t.Errorf("resolved %q (%v), want eval.accuracy", name, ok)
	}
}

// TestBuild_MetaAndDescribe verifies metadata capture and description
// fallback.
func TestBuild_MetaAndDescribe(t *testing.T) {
	src := `
		(task deploy
		      (title "Deploy")
		      (meta (owner "infra") (priority "high")))
	`

	prog, err := Load(context.Background(), src, testRuntime(nil, nil, nil))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	task, _ := prog.Task("deploy")

	if task.Meta["owner"] != "infra" || task.Meta["priority"] != "high" {
		t.Errorf("unexpected meta: %v", task.Meta)
	}

	if task.Describe() != "Deploy" {
		t.Errorf("describe = %q, want title fallback", task.Describe())
	}
}

// TestRuntime_LoadFiles verifies env overlay and flat config loading from
// the forms that reference them.
func TestRuntime_LoadFiles(t *testing.T) {
	dir := t.TempDir()

	envPath := dir + "/.env"
	writeFile(t, envPath, "# comment\nAPI_KEY=\"secret\"\nREGION=us-east\n\n")

	configPath := dir + "/config.yml"
	writeFile(t, configPath, "output-dir: /data/out\nretries: 3\nnested:\n  a: 1\n")

	rt := testRuntime(nil, nil, nil)

	src := `
		(load-env "` + envPath + `")
		(load-config "` + configPath + `")
		(def (key (env "API_KEY"))
		     (out (conf "output-dir"))
		     (retries (conf "retries")))
	`

	prog, err := Load(context.Background(), src, rt)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	for name, want := range map[string]string{
		"key":     "secret",
		"out":     "/data/out",
		"retries": "3",
	} {
		v, err := prog.Resolve(prog.Global, name)
		if err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}

		if v.Raw != want {
			t.Errorf("%s = %q, want %q", name, v.Raw, want)
		}
	}

	if _, ok := rt.Conf("nested"); ok {
		t.Error("nested config value should not be addressable")
	}
}

// TestBuild_PositionalTitles verifies the compact declaration style where a
// bare string after the name is the title.
func TestBuild_PositionalTitles(t *testing.T) {
	rt := testRuntime(nil, nil, nil)

	src := `
		(task train "Train the model"
		      (cmd "train.py"))

		(group eval "Evaluation tasks"
		       (cmd "eval.py")
		       (task accuracy "Evaluate accuracy"))
	`

	prog, err := Load(context.Background(), src, rt)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	train, _ := prog.Task("train")
	if train.Title != "Train the model" {
		t.Errorf("task title = %q", train.Title)
	}

	eval, _ := prog.Group("eval")
	if eval.Title != "Evaluation tasks" {
		t.Errorf("group title = %q", eval.Title)
	}

	accuracy, _ := prog.Task("eval.accuracy")
	if accuracy.Title != "Evaluate accuracy" {
		t.Errorf("member title = %q", accuracy.Title)
	}
}

// TestBuild_SymbolPropValue verifies that a bare symbol property value binds
// as literal text rather than a variable reference.
func TestBuild_SymbolPropValue(t *testing.T) {
	rt := testRuntime(nil, nil, nil)

	src := `
		(task run
		      (tag dev)
		      (cmd "run.py --tag {tag}"))

		(group nightly
		       (flavor slow)
		       (cmd "bench.py --flavor {flavor}")
		       (task bench))
	`

	prog, err := Load(context.Background(), src, rt)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	run, _ := prog.Task("run")

	got, err := prog.ResolveValue(context.Background(), rt, run.Scope, "tag")
	if err != nil {
		t.Fatalf("resolve tag: %v", err)
	}

	if got != "dev" {
		t.Errorf("tag = %q, want %q", got, "dev")
	}

	bench, _ := prog.Task("nightly.bench")

	got, err = prog.ResolveValue(context.Background(), rt, bench.Scope, "flavor")
	if err != nil {
		t.Fatalf("resolve flavor: %v", err)
	}

	if got != "slow" {
		t.Errorf("flavor = %q, want %q", got, "slow")
	}
}

// TestBuild_NestedFormDiagnostic verifies that errors on forms containing
// nested lists pretty-print the form across indented lines.
func TestBuild_NestedFormDiagnostic(t *testing.T) {
	rt := testRuntime(nil, nil, nil)

	_, err := Load(context.Background(), `((task a) b)`, rt)
	if !errors.Is(err, ErrBadForm) {
		t.Fatalf("expected ErrBadForm, got %v", err)
	}

	if !strings.Contains(err.Error(), "(\n") {
		t.Errorf("expected indented form rendering, got %q", err.Error())
	}
}
