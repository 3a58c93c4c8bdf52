package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#00D9FF")
	successColor   = lipgloss.Color("#04B575")
	errorColor     = lipgloss.Color("#FF5F87")
	warningColor   = lipgloss.Color("#FFAF00")
	mutedColor     = lipgloss.Color("#626262")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1).
			PaddingLeft(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			PaddingLeft(1)

	keyStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	infoStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	stepStyle    = lipgloss.NewStyle().PaddingLeft(2)
)

// printer renders styled console output to one writer.
type printer struct {
	w io.Writer
}

func (p printer) Title(title string) {
	fmt.Fprintln(p.w, titleStyle.Render("╭─ "+title+" ─╮"))
}

func (p printer) Header(title string) {
	fmt.Fprintln(p.w, headerStyle.Render("▸ "+title))
}

func (p printer) Success(message string) {
	fmt.Fprintln(p.w, stepStyle.Render(successStyle.Render("✓ "+message)))
}

func (p printer) Error(message string) {
	fmt.Fprintln(p.w, stepStyle.Render(errorStyle.Render("✗ "+message)))
}

func (p printer) Warning(message string) {
	fmt.Fprintln(p.w, stepStyle.Render(warningStyle.Render("⚠ "+message)))
}

func (p printer) Info(message string) {
	fmt.Fprintln(p.w, stepStyle.Render(infoStyle.Render(message)))
}

func (p printer) KeyValue(key, value string) {
	fmt.Fprintln(p.w, stepStyle.Render(keyStyle.Render(key+":")+" "+value))
}

// Table prints a header and rows padded to the widest cell of each column.
func (p printer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	format := func(cells []string) string {
		out := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			out[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		return strings.Join(out, " │ ")
	}

	fmt.Fprintln(p.w, stepStyle.Render(keyStyle.Render(format(headers))))
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	fmt.Fprintln(p.w, stepStyle.Render(infoStyle.Render(strings.Join(sep, "─┼─"))))
	for _, row := range rows {
		fmt.Fprintln(p.w, stepStyle.Render(format(row)))
	}
}
