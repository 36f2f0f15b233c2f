package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer   io.Writer
	jsonMode bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
	dim    *color.Color
}

// NewOutput creates a new Output instance. Colors follow fatih/color's
// terminal detection and are off in JSON mode.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	o := &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
		green:    color.New(color.FgGreen),
		red:      color.New(color.FgRed),
		yellow:   color.New(color.FgYellow),
		cyan:     color.New(color.FgCyan),
		bold:     color.New(color.Bold),
		dim:      color.New(color.Faint),
	}
	if jsonMode || color.NoColor {
		for _, c := range []*color.Color{o.green, o.red, o.yellow, o.cyan, o.bold, o.dim} {
			c.DisableColor()
		}
	}
	return o
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.green.Fprintf(o.writer, format+"\n", args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.red.Fprintf(o.writer, format+"\n", args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.yellow.Fprintf(o.writer, format+"\n", args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.bold.Fprintf(o.writer, format+"\n", args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.dim.Fprintf(o.writer, format+"\n", args...)
}

// Row prints a label and value aligned in two columns.
func (o *Output) Row(label, value string) {
	fmt.Fprintf(o.writer, "  %s %s\n", o.cyan.Sprintf("%-34s", label), value)
}

// Section prints a table heading.
func (o *Output) Section(title string) {
	fmt.Fprintln(o.writer)
	o.bold.Fprintln(o.writer, title)
	fmt.Fprintln(o.writer, strings.Repeat("─", len([]rune(title))))
}

// Signed formats an amount green when positive and red when negative.
func (o *Output) Signed(v float64) string {
	s := formatAmount(v)
	switch {
	case v > 0:
		return o.green.Sprint(s)
	case v < 0:
		return o.red.Sprint(s)
	}
	return s
}

// Optional formats a nullable amount, showing a dash when it is absent.
func (o *Output) Optional(v *float64, signed bool) string {
	if v == nil {
		return o.dim.Sprint("-")
	}
	if signed {
		return o.Signed(*v)
	}
	return formatAmount(*v)
}

// OptionalPercent formats a nullable percentage.
func (o *Output) OptionalPercent(v *float64) string {
	if v == nil {
		return o.dim.Sprint("-")
	}
	s := fmt.Sprintf("%.2f%%", *v)
	if *v < 0 {
		return o.red.Sprint(s)
	}
	return o.green.Sprint(s)
}

// formatAmount renders money with two decimals and thousand separators.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg && out != "0.00" {
		out = "-" + out
	}
	return out
}

// formatPrice renders a per-unit price without trailing zeros.
func formatPrice(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
