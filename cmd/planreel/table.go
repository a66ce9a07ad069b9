package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column. Numbers (chapters, scenes, counts, seconds)
// are right aligned, everything else left aligned.
type column struct {
	title string
	align text.Align
}

func textCol(title string) column { return column{title: title, align: text.AlignLeft} }

func numCol(title string) column { return column{title: title, align: text.AlignRight} }

// Columns shared by the chapter-oriented tables.
var (
	chapterCol = numCol("Chapter")
	sceneCol   = numCol("Scene")
	scenesCol  = numCol("Scenes")
	missingCol = numCol("Missing")
	totalCol   = numCol("Total")
)

// emptyCell stands in for blank values so sparse rows stay readable.
const emptyCell = "-"

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: col.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell == "" {
				cell = emptyCell
			}
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// secondsCell formats a duration cell.
func secondsCell(v float64) string {
	return fmt.Sprintf("%.2fs", v)
}
