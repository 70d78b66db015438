package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// defaultOutputFormat is table on a terminal and json when piped.
func defaultOutputFormat() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "table"
	}
	return "json"
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTable writes rows under upper-cased headers, columns separated by
// two spaces. Nothing is written without columns.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i := range columns {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			if i == len(columns)-1 {
				b.WriteString(cell)
				break
			}
			fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = strings.ToUpper(c)
	}
	line(headers)
	for _, row := range rows {
		line(row)
	}
}

// PrintDetail writes one "key:  value" line per field, keys sorted and
// padded so values align.
func PrintDetail(w io.Writer, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	width := 0
	for k := range fields {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s:%s  %s\n", k, strings.Repeat(" ", width-len(k)), detailValue(fields[k]))
	}
}

func detailValue(v any) string {
	switch v.(type) {
	case map[string]any, []any, []string:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return report.FormatValue(v)
}

// printTable renders a result table in the selected format.
func printTable(output string, t *report.Table) error {
	if output == "json" {
		return PrintJSON(os.Stdout, t.Records())
	}
	PrintTable(os.Stdout, t.Columns, t.Strings())
	_, _ = fmt.Fprintf(os.Stderr, "\n(%d rows)\n", t.Len())
	return nil
}

// printRows renders a slice of result structs.
func printRows(output string, rows any) error {
	if output == "json" {
		return PrintJSON(os.Stdout, rows)
	}
	t, err := report.TableOf(rows)
	if err != nil {
		return err
	}
	return printTable(output, t)
}

// printEstimate renders a dry run.
func printEstimate(output string, est *domain.CostEstimate) error {
	if output == "json" {
		return PrintJSON(os.Stdout, map[string]any{"estimate": est})
	}
	PrintDetail(os.Stdout, map[string]any{
		"operation": est.Operation,
		"table":     est.Table,
		"bytes":     est.Bytes,
		"cost_usd":  est.USD,
	})
	_, _ = fmt.Fprintln(os.Stderr, "\nEstimate only; rerun with --execute to run the query.")
	return nil
}
