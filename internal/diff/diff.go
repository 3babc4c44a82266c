// Package diff renders line diffs between run-settings snapshots.
package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"

	"runsettings/internal/settings"
)

// Renderer produces +/- line diffs, optionally colorized.
type Renderer struct {
	colorEnabled bool
}

// NewRenderer creates a renderer.
func NewRenderer(colorEnabled bool) *Renderer {
	return &Renderer{colorEnabled: colorEnabled}
}

// Result holds a rendered diff and its statistics.
type Result struct {
	Text    string
	Added   int
	Removed int
}

// Changed reports whether any line differs.
func (r Result) Changed() bool {
	return r.Added > 0 || r.Removed > 0
}

// Summary returns a short human-readable description of the change.
func (r Result) Summary() string {
	if !r.Changed() {
		return "No changes"
	}
	parts := []string{}
	if r.Added > 0 {
		parts = append(parts, fmt.Sprintf("+%d lines", r.Added))
	}
	if r.Removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d lines", r.Removed))
	}
	return strings.Join(parts, ", ")
}

// States renders both snapshots as YAML and diffs them line by line.
func (g *Renderer) States(before, after settings.State) (Result, error) {
	oldText, err := yaml.Marshal(before)
	if err != nil {
		return Result{}, fmt.Errorf("render previous state: %w", err)
	}
	newText, err := yaml.Marshal(after)
	if err != nil {
		return Result{}, fmt.Errorf("render next state: %w", err)
	}
	return g.Lines(string(oldText), string(newText)), nil
}

// Lines diffs two texts with whole lines as the unit of change. Unchanged
// lines are kept as context.
func (g *Renderer) Lines(oldText, newText string) Result {
	if oldText == newText {
		return Result{}
	}

	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var (
		out    strings.Builder
		result Result
	)
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				out.WriteString(g.colorize("+"+line, color.FgGreen))
				result.Added++
			case diffmatchpatch.DiffDelete:
				out.WriteString(g.colorize("-"+line, color.FgRed))
				result.Removed++
			default:
				out.WriteString(" " + line)
			}
			out.WriteByte('\n')
		}
	}
	result.Text = out.String()
	return result
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func (g *Renderer) colorize(text string, attr color.Attribute) string {
	if !g.colorEnabled {
		return text
	}
	return color.New(attr).Sprint(text)
}
