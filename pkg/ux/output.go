// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package ux renders terminal output for the callchain CLI.
//
// Output is styled with lipgloss when the destination is a terminal and
// falls back to plain, line-oriented text otherwise so results can be
// piped into other tools.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette.
var (
	ColorPrimary = lipgloss.Color("#20B9B4")
	ColorBright  = lipgloss.Color("#2CD7C7")
	ColorAccent  = lipgloss.Color("#16858E")
	ColorSlate   = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorRemote  = lipgloss.Color("#AF7AC5")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Remote    lipgloss.Style
	Service   lipgloss.Style

	Box lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorBright).Bold(true),
	Remote:    lipgloss.NewStyle().Foreground(ColorRemote).Bold(true),
	Service:   lipgloss.NewStyle().Foreground(ColorAccent),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1),
}

// Icon provides status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconRemote  Icon = "⇢"
)

// Render returns the icon with its style.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconRemote:
		return Styles.Remote.Render(string(i))
	default:
		return string(i)
	}
}

// Mode selects between styled and plain output.
type Mode int

const (
	// ModeStyled uses colors, icons, and boxes.
	ModeStyled Mode = iota

	// ModePlain writes prefixed lines without escape sequences.
	ModePlain
)

// DetectMode returns ModeStyled when w is a terminal and ModePlain
// otherwise.
func DetectMode(w io.Writer) Mode {
	f, ok := w.(*os.File)
	if !ok {
		return ModePlain
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return ModeStyled
	}
	return ModePlain
}

// Printer writes user-facing messages in one Mode.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter creates a Printer for w with the detected mode.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, mode: DetectMode(w)}
}

// NewPrinterMode creates a Printer with an explicit mode.
func NewPrinterMode(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Writer returns the destination writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Title prints a heading. Plain mode prints it unadorned.
func (p *Printer) Title(text string) {
	if p.mode == ModePlain {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if p.mode == ModePlain {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Stat is one labeled count in a summary.
type Stat struct {
	Label string
	Value int
}

// Summary prints counts on one line, as key=value pairs in plain mode.
func (p *Printer) Summary(title string, stats ...Stat) {
	if p.mode == ModePlain {
		parts := make([]string, len(stats))
		for i, s := range stats {
			parts[i] = fmt.Sprintf("%s=%d", strings.ReplaceAll(s.Label, " ", "_"), s.Value)
		}
		fmt.Fprintf(p.w, "SUMMARY %s: %s\n", title, strings.Join(parts, " "))
		return
	}
	lines := make([]string, len(stats))
	for i, s := range stats {
		lines[i] = fmt.Sprintf("%s %s", Styles.Highlight.Render(fmt.Sprintf("%6d", s.Value)), Styles.Muted.Render(s.Label))
	}
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render(title)+"\n"+strings.Join(lines, "\n")))
}
