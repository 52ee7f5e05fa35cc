package main

import (
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type kindStyle struct {
	tag    string
	colors text.Colors
}

var kindStyles = map[statusKind]kindStyle{
	statusInfo:  {tag: "INFO", colors: text.Colors{text.FgBlue}},
	statusOK:    {tag: "OK", colors: text.Colors{text.FgGreen}},
	statusWarn:  {tag: "WARN", colors: text.Colors{text.FgYellow}},
	statusError: {tag: "ERROR", colors: text.Colors{text.FgRed, text.Bold}},
}

var headerColors = text.Colors{text.FgCyan, text.Bold}

const statusIndent = "  "

type statusRow struct {
	label   string
	kind    statusKind
	message string
}

type statusSection struct {
	title string
	rows  []statusRow
}

func (s *statusSection) add(label string, kind statusKind, message string) {
	s.rows = append(s.rows, statusRow{label: label, kind: kind, message: message})
}

// statusReport renders titled sections of tagged rows. Labels line up with
// the widest label of their own section.
type statusReport struct {
	colorize bool
	sections []*statusSection
}

func newStatusReport(colorize bool) *statusReport {
	return &statusReport{colorize: colorize}
}

func (r *statusReport) section(title string) *statusSection {
	s := &statusSection{title: strings.TrimSpace(title)}
	r.sections = append(r.sections, s)
	return s
}

func (r *statusReport) String() string {
	var blocks []string
	for _, s := range r.sections {
		lines := r.header(s.title)
		width := 0
		for _, row := range s.rows {
			width = max(width, text.StringWidthWithoutEscSequences(row.label)+1)
		}
		for _, row := range s.rows {
			lines = append(lines, r.row(row, width))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func (r *statusReport) header(title string) []string {
	line := "== " + title + " =="
	rule := strings.Repeat("-", text.StringWidthWithoutEscSequences(line))
	if r.colorize {
		return []string{text.Escape(line, headerColors.EscapeSeq()), rule}
	}
	return []string{line, rule}
}

func (r *statusReport) row(row statusRow, width int) string {
	style, ok := kindStyles[row.kind]
	if !ok {
		style = kindStyles[statusInfo]
	}
	line := statusIndent + text.Pad(row.label+":", width, ' ') + " [" + style.tag + "]"
	if row.message != "" {
		line += " " + row.message
	}
	if r.colorize {
		return text.Escape(line, style.colors.EscapeSeq())
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
