// Package profile provides optional runtime profiling for the tasq
// command.
//
// Profiling integrates [github.com/pkg/profile] behind the "pprof" build
// tag. In default builds every operation is a no-op with zero overhead;
// building with the tag enables the --pprof-* command-line flags:
//
//	go build -tags pprof .
//	tasq --pprof-mode cpu --pprof-dir /tmp/profiles train
//
// Profile files are written to the output directory named after the mode
// (cpu.pprof, heap.pprof, ...) and analyzed with:
//
//	go tool pprof /tmp/profiles/cpu.pprof
//
// Use [Modes] for the supported mode names in a tagged build.
package profile

// Tag is the build tag required to enable profiling.
const Tag = `pprof`
