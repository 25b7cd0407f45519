package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"lectern/internal/pipeline"
)

// renderTable draws a rounded table. numericCols are zero-based indexes of
// columns that right-align.
func renderTable(headers []string, rows [][]string, numericCols ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	numeric := make(map[int]bool, len(numericCols))
	for _, col := range numericCols {
		numeric[col] = true
	}
	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if numeric[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func reportRows(report *pipeline.Report) [][]string {
	rows := make([][]string, 0, len(report.Units))
	for _, unit := range report.Units {
		detail := ""
		if unit.Err != nil {
			detail = unit.Err.Error()
		} else if unit.RenderEngine != "" {
			detail = "rendered with " + unit.RenderEngine
		}
		dir, err := filepath.Rel(report.Root, unit.Unit.Dir)
		if err != nil || dir == "" {
			dir = unit.Unit.Dir
		}
		rows = append(rows, []string{
			dir,
			unit.Unit.Prefix,
			unit.Unit.Kind.String(),
			unit.Outcome.String(),
			unit.FailedStage,
			detail,
		})
	}
	return rows
}

func printReport(out io.Writer, report *pipeline.Report) {
	if len(report.Units) == 0 {
		fmt.Fprintln(out, "No processable media found.")
	} else if stdoutIsTerminal() {
		headers := []string{"Directory", "Unit", "Kind", "Outcome", "Stage", "Detail"}
		fmt.Fprintln(out, renderTable(headers, reportRows(report)))
	} else {
		for _, row := range reportRows(report) {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3], row[4], row[5])
		}
	}

	fmt.Fprintf(out, "%d succeeded, %d partial, %d failed\n",
		report.Succeeded(), report.Partial(), report.Failed())
	for _, dirErr := range report.DirectoryErrors {
		fmt.Fprintf(out, "warning: could not read %s: %v\n", dirErr.Dir, dirErr.Err)
	}
}
