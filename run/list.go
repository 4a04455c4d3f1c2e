package run

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/tasq/lang"
)

// Styles for task listings.
var (
	taskStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	groupStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	detailStyle = lipgloss.NewStyle().Faint(true)
)

// List renders the program's runnable tasks and groups in declared order,
// one per line with its title. Group members are indented beneath their
// group. Verbose listings add descriptions, command templates, steps, and
// metadata.
func List(prog *lang.Program, verbose bool) string {
	var sb strings.Builder

	width := nameWidth(prog)

	for _, name := range prog.TaskOrder {
		task := prog.Tasks[name]
		if task.Group != "" {
			continue
		}

		writeTask(&sb, task, name, width, 0, verbose)
	}

	for _, name := range prog.GroupOrder {
		group := prog.Groups[name]

		writeRow(&sb, groupStyle.Render(name), name, group.Title, width, 0)

		if verbose {
			writeDetail(&sb, 1, "desc", group.Desc)
			writeDetail(&sb, 1, "cmd", group.Cmd)
		}

		for _, task := range group.Tasks {
			short := strings.TrimPrefix(task.Name, name+".")

			writeTask(&sb, task, short, width, 1, verbose)
		}
	}

	return sb.String()
}

// nameWidth computes the first-column width over every rendered name,
// accounting for member indentation.
func nameWidth(prog *lang.Program) int {
	width := 0

	measure := func(n int) {
		if n > width {
			width = n
		}
	}

	for _, name := range prog.TaskOrder {
		task := prog.Tasks[name]

		if task.Group == "" {
			measure(len(name))
		} else {
			measure(len(name) - len(task.Group) - 1 + indentWidth)
		}
	}

	for _, name := range prog.GroupOrder {
		measure(len(name))
	}

	return width
}

const indentWidth = 2

func writeTask(
	sb *strings.Builder,
	task *lang.TaskDef,
	label string,
	width, indent int,
	verbose bool,
) {
	writeRow(sb, taskStyle.Render(label), label, task.Title, width, indent)

	if !verbose {
		return
	}

	writeDetail(sb, indent+1, "desc", task.Desc)

	if task.Shell != "" {
		writeDetail(sb, indent+1, "shell", task.Shell)
	} else {
		writeDetail(sb, indent+1, "cmd", task.Cmd)
	}

	if len(task.Steps) > 0 {
		refs := make([]string, 0, len(task.Steps))
		for _, ref := range task.Steps {
			refs = append(refs, string(ref))
		}

		writeDetail(sb, indent+1, "steps", strings.Join(refs, " "))
	}

	for _, key := range slices.Sorted(maps.Keys(task.Meta)) {
		writeDetail(sb, indent+1, key, task.Meta[key])
	}
}

// writeRow emits "name  title" with the name column padded to width. The
// styled name may carry ANSI sequences, so padding is computed from the
// plain label.
func writeRow(
	sb *strings.Builder,
	styled, label, title string,
	width, indent int,
) {
	sb.WriteString(strings.Repeat(" ", indent*indentWidth))
	sb.WriteString(styled)

	if title != "" {
		pad := width - indent*indentWidth - len(label)
		if pad < 0 {
			pad = 0
		}

		sb.WriteString(strings.Repeat(" ", pad+indentWidth))
		sb.WriteString(title)
	}

	sb.WriteByte('\n')
}

func writeDetail(sb *strings.Builder, indent int, key, value string) {
	if value == "" {
		return
	}

	sb.WriteString(strings.Repeat(" ", indent*indentWidth))
	sb.WriteString(detailStyle.Render(key + ": " + value))
	sb.WriteByte('\n')
}
