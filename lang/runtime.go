package lang

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Runner executes external commands on behalf of the interpreter. It is the
// black-box boundary to the shell: the interpreter knows nothing about how
// commands run beyond their exit status and captured output.
//
// Every call blocks until the external process exits. There is no timeout
// beyond whatever the provided context imposes.
type Runner interface {
	// Output runs command through the shell and returns its captured
	// standard output. A non-zero exit status is an error.
	Output(ctx context.Context, command string) (string, error)

	// Run runs command with inherited standard streams. A non-zero exit
	// status is an error carrying that status.
	Run(ctx context.Context, command string) error
}

// Runtime carries the interpreter's external collaborators: the process
// environment (overlaid with load-env entries), the flat configuration
// lookup (populated by load-config), the command runner, and the clock.
//
// It is threaded explicitly through resolution and evaluation instead of
// living in process-wide globals, so tests substitute fakes freely.
type Runtime struct {
	Env    map[string]string
	Config map[string]string
	Exec   Runner
	Now    func() time.Time
}

// NewRuntime returns a Runtime backed by the process environment, an empty
// configuration store, the given runner, and the system clock.
func NewRuntime(exec Runner) *Runtime {
	return &Runtime{
		Env:    environMap(os.Environ()),
		Config: make(map[string]string),
		Exec:   exec,
		Now:    time.Now,
	}
}

// environMap converts "KEY=VALUE" entries to a map.
func environMap(entries []string) map[string]string {
	env := make(map[string]string, len(entries))

	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			env[key] = value
		}
	}

	return env
}

// Getenv looks up an environment variable, honoring load-env overlays.
func (rt *Runtime) Getenv(name string) (string, bool) {
	v, ok := rt.Env[name]

	return v, ok
}

// Conf looks up a key in the loaded configuration store.
func (rt *Runtime) Conf(key string) (string, bool) {
	v, ok := rt.Config[key]

	return v, ok
}

// LoadEnvFile reads a .env-style key=value file and overlays its entries
// onto the runtime environment. Blank lines and #-comments are skipped,
// and double-quoted values have their quotes stripped.
func (rt *Runtime) LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ErrReadInput.Wrap(err).With(
			slog.String("env", path),
		)
	}

	if rt.Env == nil {
		rt.Env = make(map[string]string)
	}

	for line := range strings.Lines(string(data)) {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, raw, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}

		value := strings.TrimSpace(raw)
		if len(value) >= 2 &&
			strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}

		rt.Env[strings.TrimSpace(key)] = value
	}

	return nil
}

// LoadConfigFile reads a configuration file into the flat key→string
// lookup backing conf(...). JSON is a subset of YAML, so one decoder
// serves both encodings. Only top-level scalar values are retained;
// non-string scalars are rendered in their canonical form.
func (rt *Runtime) LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ErrReadInput.Wrap(err).With(
			slog.String("config", path),
		)
	}

	var doc map[string]any

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ErrReadInput.Wrap(err).With(
			slog.String("config", path),
		)
	}

	if rt.Config == nil {
		rt.Config = make(map[string]string, len(doc))
	}

	for key, value := range doc {
		switch v := value.(type) {
		case string:
			rt.Config[key] = v

		case nil:
			// absent on lookup

		case map[string]any, []any:
			// nested structure: not addressable by the flat lookup

		default:
			rt.Config[key] = fmt.Sprint(v)
		}
	}

	return nil
}
