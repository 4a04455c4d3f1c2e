package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Styles for the colorized text handler.
var (
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	strStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	numStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	durStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	trueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	falseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	levelStyle = map[Level]lipgloss.Style{
		LevelTrace: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// prettyHandler is a colorized text handler: one record per line, keys
// dimmed, values colored by type, no quoting.
type prettyHandler struct {
	opts       slog.HandlerOptions
	formatTime FormatTime
	mu         *sync.Mutex
	w          io.Writer
	attrs      []slog.Attr
	group      string
}

func newPrettyHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) *prettyHandler {
	return &prettyHandler{
		opts:       *opts,
		formatTime: formatTime,
		mu:         &sync.Mutex{},
		w:          w,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if !r.Time.IsZero() {
		if stamp := h.formatTime(r.Time); stamp != "" {
			buf.WriteString(timeStyle.Render(stamp))
		}
	}

	h.writeLevel(buf, Level(r.Level))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			h.sep(buf)
			buf.WriteString(keyStyle.Render(
				src.File + ":" + strconv.Itoa(src.Line),
			))
		}
	}

	h.sep(buf)
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		h.writeAttr(buf, a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)

	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := *h

	if clone.group != "" {
		clone.group += "."
	}

	clone.group += name

	return &clone
}

func (h *prettyHandler) sep(buf *bytes.Buffer) {
	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}
}

func (h *prettyHandler) writeLevel(buf *bytes.Buffer, level Level) {
	h.sep(buf)

	style, ok := levelStyle[level]
	if !ok {
		style = keyStyle
	}

	buf.WriteString(style.Render(strings.ToUpper(level.String())))
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			member.Key = a.Key + "." + member.Key
			h.writeAttr(buf, member)
		}

		return
	}

	h.sep(buf)

	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}

	buf.WriteString(keyStyle.Render(key))
	buf.WriteByte('=')
	h.writeValue(buf, a.Value)
}

func (h *prettyHandler) writeValue(buf *bytes.Buffer, v slog.Value) {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		buf.WriteString(strStyle.Render(v.String()))

	case slog.KindInt64:
		buf.WriteString(numStyle.Render(strconv.FormatInt(v.Int64(), 10)))

	case slog.KindUint64:
		buf.WriteString(numStyle.Render(strconv.FormatUint(v.Uint64(), 10)))

	case slog.KindFloat64:
		buf.WriteString(numStyle.Render(
			strconv.FormatFloat(v.Float64(), 'g', -1, 64),
		))

	case slog.KindBool:
		if v.Bool() {
			buf.WriteString(trueStyle.Render("true"))
		} else {
			buf.WriteString(falseStyle.Render("false"))
		}

	case slog.KindDuration:
		buf.WriteString(durStyle.Render(v.Duration().String()))

	case slog.KindTime:
		buf.WriteString(timeStyle.Render(h.formatTime(v.Time())))

	default:
		buf.WriteString(strStyle.Render(v.String()))
	}
}
