// Package cli contains the command line interface for tasq.
//
// # Usage
//
//	tasq [flags] [task ...] [-- extra args]
//
// The program file (default tasks.sx, or standard input with -f -) is
// loaded and built, then each named task or group runs in order. With no
// task names, or with --list, the runnable tasks and groups are listed
// instead; --verbose adds descriptions, command templates, and steps.
//
// Arguments after "--" are appended verbatim to the command line of each
// requested task (never to its steps):
//
//	tasq train -- --epochs 100
//
// # Logging Options
//
//   - --log-level: set minimum log level (trace, debug, info, warn, error)
//   - --log-format: set log output format (json, text)
//   - --log-time-layout: set timestamp format (RFC3339, Kitchen, ...)
//   - --log-caller: include caller information in log output
//   - --log-pretty: colorize text output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
//   - --pprof-mode: enable profiling (allocs, block, clock, cpu,
//     goroutine, heap, mem, mutex, thread, trace)
//   - --pprof-dir: set profile output directory
package cli
