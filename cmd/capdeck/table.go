package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. A non-zero width wraps longer cells
// at word boundaries.
type column struct {
	header string
	align  text.Align
	width  int
}

func newTableWriter(columns []column) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, c := range columns {
		cfg := table.ColumnConfig{Number: i + 1, Align: c.align, AlignHeader: text.AlignLeft}
		if c.width > 0 {
			cfg.WidthMax = c.width
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs = append(configs, cfg)
	}
	tw.SetColumnConfigs(configs)
	return tw
}

func toRow(cells []string, n int) table.Row {
	row := make(table.Row, n)
	for i := range n {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := newTableWriter(columns)
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.header
	}
	tw.AppendHeader(toRow(headers, len(columns)))
	for _, cells := range rows {
		tw.AppendRow(toRow(cells, len(columns)))
	}
	return tw.Render()
}

// renderSettingsTable renders label/value pairs without a header row. Empty
// values show as "-".
func renderSettingsTable(pairs [][2]string) string {
	tw := newTableWriter([]column{{align: text.AlignRight}, {align: text.AlignLeft, width: 60}})
	for _, p := range pairs {
		value := strings.TrimSpace(p[1])
		if value == "" {
			value = "-"
		}
		tw.AppendRow(table.Row{p[0], value})
	}
	return tw.Render()
}
