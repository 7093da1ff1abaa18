// Package ui writes the operator-facing transcript of a sync run.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Status tags prefixed to each transcript line.
const (
	TagTarget  = "[T]"
	TagSkipped = "[S]"
	TagDir     = "[D]"
	TagKey     = "[K]"
	TagDryRun  = "[N]"
)

var (
	target  = color.New(color.FgCyan, color.Bold).SprintFunc()
	skipped = color.New(color.Faint).SprintFunc()
	dir     = color.New(color.FgGreen).SprintFunc()
	key     = color.New(color.FgMagenta).SprintFunc()
	dryRun  = color.New(color.FgYellow).SprintFunc()
	heading = color.New(color.Bold).SprintFunc()
)

// DisableColors disables all color output
func DisableColors() {
	color.NoColor = true
}

// Printer writes tagged status lines
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Target announces the destination host
func (p *Printer) Target(remote string) {
	p.line(target(TagTarget), remote)
}

// Skipped reports a selected path that does not exist locally
func (p *Printer) Skipped(path string) {
	p.line(skipped(TagSkipped), path)
}

// Dir reports a directory about to be mirrored
func (p *Printer) Dir(path string) {
	p.line(dir(TagDir), path)
}

// Key reports the public key being provisioned
func (p *Printer) Key(path string) {
	p.line(key(TagKey), path)
}

// Command shows a command that dry-run mode did not execute
func (p *Printer) Command(cmdline string) {
	p.line(dryRun(TagDryRun), cmdline)
}

// Heading writes a bold section title
func (p *Printer) Heading(title string) {
	_, _ = fmt.Fprintln(p.out, heading(title))
}

// Item writes an indented list entry
func (p *Printer) Item(text string) {
	_, _ = fmt.Fprintf(p.out, "  %s\n", text)
}

func (p *Printer) line(tag, text string) {
	_, _ = fmt.Fprintf(p.out, "%s %s\n", tag, text)
}
