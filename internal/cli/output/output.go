// Package output renders CLI results as text tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects how results are written.
type Mode string

// Output modes. Auto picks text on a terminal and JSON otherwise.
const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
	ModeYAML Mode = "yaml"
)

// Modes lists the accepted --output values.
var Modes = []string{string(ModeAuto), string(ModeText), string(ModeJSON), string(ModeYAML)}

// ParseMode validates a mode name. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeText, ModeJSON, ModeYAML:
		return m, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want one of %s)", s, strings.Join(Modes, ", "))
	}
}

// Renderer writes command results to stdout and notices to stderr.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, isTTY: isTTY}
}

// EffectiveMode resolves auto.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeJSON
}

// Out returns the result writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Data writes v as JSON or YAML. In text mode text is called instead.
func (r *Renderer) Data(v any, text func(w io.Writer) error) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case ModeYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(toYAML(v)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(r.out)
	}
}

// Table writes rows with a header row.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	h := make(table.Row, len(header))
	for i, col := range header {
		h[i] = col
	}
	t.AppendHeader(h)
	for _, row := range rows {
		t.AppendRow(row)
	}
	t.Render()
}

// KeyValues writes aligned key/value pairs.
func (r *Renderer) KeyValues(pairs [][2]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	for _, kv := range pairs {
		t.AppendRow(table.Row{kv[0], kv[1]})
	}
	t.Render()
}

// Success prints a confirmation. Machine modes stay silent so stdout
// carries only data.
func (r *Renderer) Success(format string, args ...any) {
	if r.EffectiveMode() != ModeText {
		return
	}
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// Warn prints to stderr.
func (r *Renderer) Warn(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errOut, "warning: "+format+"\n", args...)
}

// toYAML round-trips v through JSON so yaml output uses the json field
// names and omits the same fields.
func toYAML(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return v
	}
	return generic
}
