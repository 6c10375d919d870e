// Package ui prints human-facing status lines for the command line.
// Machine-readable output never goes through it.
package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Printer writes colored status lines; color is used only on a terminal
type Printer struct {
	out   io.Writer
	color bool
	quiet bool
}

// NewPrinter creates a Printer. In quiet mode only errors are printed.
func NewPrinter(out io.Writer, quiet bool) *Printer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{out: out, color: color, quiet: quiet}
}

const (
	cyan    = "\033[36m%s\033[0m"
	yellow  = "\033[33m%s\033[0m"
	red     = "\033[31m%s\033[0m"
	green   = "\033[32m%s\033[0m"
	magenta = "\033[35m%s\033[0m"
	dim     = "\033[2m%s\033[0m"
)

func (p *Printer) paint(code, text string) string {
	if !p.color {
		return text
	}
	return fmt.Sprintf(code, text)
}

func withDetail(msg string, args []interface{}) string {
	if len(args) > 0 {
		return msg + ": " + fmt.Sprintf("%v", args[0])
	}
	return msg
}

// Error prints an error message in red
func (p *Printer) Error(msg string, args ...interface{}) {
	fmt.Fprintln(p.out, p.paint(red, withDetail(msg, args)))
}

// Success prints a success message in green
func (p *Printer) Success(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.paint(green, msg))
}

// Info prints a label and value
func (p *Printer) Info(label string, value interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s: %s\n", p.paint(cyan, label), p.paint(yellow, fmt.Sprintf("%v", value)))
}

// Warning prints a warning message in yellow
func (p *Printer) Warning(msg string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.paint(yellow, withDetail(msg, args)))
}

// Highlight prints a highlighted message in magenta
func (p *Printer) Highlight(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.paint(magenta, msg))
}

// Note prints a dimmed secondary line
func (p *Printer) Note(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.paint(dim, msg))
}
