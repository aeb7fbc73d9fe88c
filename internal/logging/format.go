package logging

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Renders entries as "LEVEL message key=value ...".
type TextFormatter struct{}

// Formats an entry as a single plain line.
func (f *TextFormatter) Format(e Entry) []byte {
	var b strings.Builder
	b.WriteString(e.Time.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(e.Level.String())
	if len(e.Groups) > 0 {
		b.WriteString(" [" + strings.Join(e.Groups, ".") + "]")
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	writeAttrs(&b, "", e.Attrs, func(s string) string { return s })
	b.WriteByte('\n')
	return []byte(b.String())
}

// Renders entries with colored level badges for terminals.
type PrettyFormatter struct {
	color   bool
	verbose bool
	levels  map[slog.Level]lipgloss.Style
	key     lipgloss.Style
	dim     lipgloss.Style
}

// Creates a pretty formatter. Colors are applied only when color is true.
func NewPrettyFormatter(color bool) *PrettyFormatter {
	base := lipgloss.NewStyle().Bold(true)
	return &PrettyFormatter{
		color: color,
		levels: map[slog.Level]lipgloss.Style{
			slog.LevelDebug: base.Foreground(lipgloss.Color("8")),
			slog.LevelInfo:  base.Foreground(lipgloss.Color("12")),
			slog.LevelWarn:  base.Foreground(lipgloss.Color("11")),
			slog.LevelError: base.Foreground(lipgloss.Color("9")),
		},
		key: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		dim: lipgloss.NewStyle().Faint(true),
	}
}

// Enables timestamps and group names in the output.
func (f *PrettyFormatter) SetVerbose(verbose bool) {
	f.verbose = verbose
}

// Formats an entry as a single line.
func (f *PrettyFormatter) Format(e Entry) []byte {
	var b strings.Builder

	if f.verbose {
		b.WriteString(f.render(f.dim, e.Time.Format("15:04:05.000")))
		b.WriteByte(' ')
	}

	b.WriteString(f.render(f.levelStyle(e.Level), levelLabel(e.Level)))
	b.WriteByte(' ')

	if f.verbose && len(e.Groups) > 0 {
		b.WriteString(f.render(f.dim, strings.Join(e.Groups, ".")+":"))
		b.WriteByte(' ')
	}

	b.WriteString(e.Message)
	writeAttrs(&b, "", e.Attrs, func(k string) string { return f.render(f.key, k) })
	b.WriteByte('\n')
	return []byte(b.String())
}

func (f *PrettyFormatter) render(s lipgloss.Style, text string) string {
	if !f.color {
		return text
	}
	return s.Render(text)
}

func (f *PrettyFormatter) levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return f.levels[slog.LevelError]
	case level >= slog.LevelWarn:
		return f.levels[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return f.levels[slog.LevelInfo]
	default:
		return f.levels[slog.LevelDebug]
	}
}

// Fixed-width level label.
func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

// Appends " key=value" pairs, flattening groups into dotted keys.
func writeAttrs(b *strings.Builder, prefix string, attrs []slog.Attr, styleKey func(string) string) {
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			continue
		}

		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}

		if a.Value.Kind() == slog.KindGroup {
			writeAttrs(b, key, a.Value.Group(), styleKey)
			continue
		}

		b.WriteByte(' ')
		b.WriteString(styleKey(key))
		b.WriteByte('=')
		b.WriteString(quote(a.Value.String()))
	}
}

// Quotes values that would otherwise be ambiguous on a key=value line.
func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
