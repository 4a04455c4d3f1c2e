// Package lang implements the task definition language: an S-expression
// dialect for declaring parameterized shell tasks.
//
// A source file is a sequence of top-level forms:
//
//	(base-cmd "python")                  ; command prefix for task cmds
//	(load-env ".env")                    ; overlay key=value pairs onto env
//	(load-config "config.yml")           ; populate the conf(...) lookup
//	(types (model-type '("small" "large")))
//	(def (data "test")
//	     ([model model-type] "small"))   ; typed definition
//	(task train
//	      (title "Train a model")
//	      (params "--model {model} --data {data}")
//	      (cmd "train.py {params}"))
//	(group eval
//	      (cmd "eval.py {params}")
//	      (task accuracy (params "--metric accuracy")))
//
// Processing happens in two phases. The declaration phase ([Load] or
// [Build]) runs every variable expression exactly once, captures type
// enumerations, and freezes the [Program]. The usage phase
// ([Program.Expand]) substitutes {name} placeholders recursively at the
// point a value is used, resolving names through the lexical scope chain
// (task, then group, then global).
//
// Expressions are applications of a closed set of builtins: or, and, if,
// equal?, env, conf, git-root, current-timestamp, shell, and from-shell.
// Evaluation is presence-based rather than boolean: an unset environment
// variable, a missing config key, or an empty string is "absent", and or
// selects the first non-absent operand.
//
// Interpolation guards against runaway references: expansion deeper than
// [MaxInterpolationDepth] fails with [ErrMaxDepth], and a binding that can
// only be satisfied by itself fails with [ErrCircular]. A binding whose
// value mentions its own name is not a cycle: the reference resolves
// against the next outer scope, so a task-level params can extend a
// group-level params.
package lang
