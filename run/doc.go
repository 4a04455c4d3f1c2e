// Package run executes tasks from a built program: it expands command
// templates, assembles full command lines behind the base command, runs
// them through a POSIX shell with fail-fast semantics, and renders task
// listings for the CLI.
package run
