// Package console prints the tool's human-facing progress lines.
// Structured records go to the logger; this is only presentation.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const ruleWidth = 72

// Printer writes tagged status lines to Out and reads answers from In.
type Printer struct {
	Out io.Writer
	In  io.Reader

	in *bufio.Reader

	info, ok, warn, fail lipgloss.Style
	command, key         lipgloss.Style
	faint, stderr        lipgloss.Style
	rule, panel          lipgloss.Style
}

// New returns a Printer whose colors follow the capabilities of out.
func New(out io.Writer, in io.Reader) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		Out:     out,
		In:      in,
		info:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		ok:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		fail:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		command: r.NewStyle().Foreground(lipgloss.Color("5")),
		key:     r.NewStyle().Foreground(lipgloss.Color("6")),
		faint:   r.NewStyle().Faint(true),
		stderr:  r.NewStyle().Foreground(lipgloss.Color("1")),
		rule:    r.NewStyle().Foreground(lipgloss.Color("3")),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("2")).
			Foreground(lipgloss.Color("2")).
			Bold(true).
			Padding(0, 2),
	}
}

func (p *Printer) line(tag lipgloss.Style, label, format string, args ...any) {
	fmt.Fprintf(p.Out, "%s %s\n", tag.Render(label), fmt.Sprintf(format, args...))
}

// Info prints a neutral progress line.
func (p *Printer) Info(format string, args ...any) { p.line(p.info, "[ # ]", format, args...) }

// OK prints a success line.
func (p *Printer) OK(format string, args ...any) { p.line(p.ok, "[ + ]", format, args...) }

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) { p.line(p.warn, "[WARN]", format, args...) }

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) { p.line(p.fail, "[ERROR]", format, args...) }

// Command echoes a command line before it runs.
func (p *Printer) Command(line string) {
	fmt.Fprintln(p.Out, p.command.Render("$ "+line))
}

// Field prints an indented key/value line.
func (p *Printer) Field(key string, value any) {
	fmt.Fprintf(p.Out, " %s %v\n", p.key.Render("- "+key+":"), value)
}

// Output prints captured standard output of a tool dimmed.
func (p *Printer) Output(text string) { p.lines(p.faint, text) }

// ErrorOutput prints captured standard error of a tool in red.
func (p *Printer) ErrorOutput(text string) { p.lines(p.stderr, text) }

func (p *Printer) lines(style lipgloss.Style, text string) {
	for _, l := range strings.Split(strings.TrimRight(text, "\r\n"), "\n") {
		if l = strings.TrimRight(l, "\r"); l != "" {
			fmt.Fprintln(p.Out, style.Render(l))
		}
	}
}

// Rule prints a blank line and a centered title between dashes.
func (p *Printer) Rule(title string) {
	title = " " + title + " "
	side := (ruleWidth - len(title)) / 2
	if side < 3 {
		side = 3
	}
	dashes := strings.Repeat("-", side)
	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, p.rule.Render(dashes+title+dashes))
}

// Panel prints msg inside a border.
func (p *Printer) Panel(msg string) {
	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, p.panel.Render(msg))
}

// Confirm asks a yes/no question. Only "y" or "yes" count as yes; end of
// input counts as no.
func (p *Printer) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.Out, "%s (Y/N): ", question)

	answer, err := p.reader().ReadString('\n')
	if err != nil && answer == "" {
		if err == io.EOF {
			fmt.Fprintln(p.Out)
			return false, nil
		}
		return false, fmt.Errorf("console: read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Pause waits for ENTER when In is an interactive terminal, so a console
// window opened by double-click stays up. Otherwise it returns at once.
func (p *Printer) Pause() {
	f, ok := p.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return
	}
	fmt.Fprintf(p.Out, "\n%s\n", p.info.Render("Press ENTER to exit..."))
	_, _ = p.reader().ReadString('\n')
}

func (p *Printer) reader() *bufio.Reader {
	if p.in == nil {
		p.in = bufio.NewReader(p.In)
	}
	return p.in
}
