package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xmazu/dotenvy/dotenv"
)

// Diagnostic locates a parse failure on the physical line it occurred on.
// Line and Column are 1-based; Column counts bytes.
type Diagnostic struct {
	Path   string
	Line   int
	Column int
	Text   string
	Err    error
}

// NewDiagnostic builds a Diagnostic from an error returned by the dotenv
// package. ok is false when err carries no line information.
func NewDiagnostic(path string, err error) (Diagnostic, bool) {
	var lineErr *dotenv.LineError
	if !errors.As(err, &lineErr) {
		return Diagnostic{}, false
	}
	var fileErr *dotenv.FileError
	if path == "" && errors.As(err, &fileErr) {
		path = fileErr.Path
	}

	offset := min(max(lineErr.Offset, 0), len(lineErr.Line))
	// An unterminated quote fails past the final newline; point at the last
	// character of the last real line instead.
	if trimmed := strings.TrimRight(lineErr.Line, "\n"); offset >= len(trimmed) && len(trimmed) < len(lineErr.Line) {
		offset = max(len(trimmed)-1, 0)
	}
	before := lineErr.Line[:offset]
	start := strings.LastIndexByte(before, '\n') + 1
	end := strings.IndexByte(lineErr.Line[offset:], '\n')
	if end < 0 {
		end = len(lineErr.Line)
	} else {
		end += offset
	}

	num := lineErr.Num
	if num > 0 {
		num += strings.Count(before, "\n")
	}
	return Diagnostic{
		Path:   path,
		Line:   num,
		Column: offset - start + 1,
		Text:   lineErr.Line[start:end],
		Err:    lineErr,
	}, true
}

func (d Diagnostic) Location() string {
	loc := d.Path
	if loc == "" {
		loc = "<input>"
	}
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", loc, d.Line, d.Column)
	}
	return loc
}

// caretPad returns whitespace as wide as the first col-1 bytes of text.
// Tabs are kept so the caret lines up in a terminal.
func caretPad(text string, col int) string {
	prefix := text[:min(col-1, len(text))]
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", lipgloss.Width(string(r))))
	}
	return b.String()
}

// Render formats d as a location header, the offending line and a caret
// under the failing byte.
func (d Diagnostic) Render() string {
	gutter := "  | "
	if d.Line > 0 {
		gutter = fmt.Sprintf("%d | ", d.Line)
	}
	blank := strings.Repeat(" ", len(gutter)-2) + "| "

	var b strings.Builder
	b.WriteString(LocationStyle.Render(d.Location()))
	b.WriteString(": ")
	b.WriteString(Error("parse error"))
	b.WriteByte('\n')
	b.WriteString(GutterStyle.Render(gutter))
	b.WriteString(d.Text)
	b.WriteByte('\n')
	b.WriteString(GutterStyle.Render(blank))
	b.WriteString(caretPad(d.Text, d.Column))
	b.WriteString(CaretStyle.Render("^"))
	b.WriteByte('\n')
	return b.String()
}
