package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/platformbuilds/ga4-insights/internal/models"
)

// renderReport prints rows as a table with the given columns, then the
// insights. Missing cells print empty.
func renderReport(w io.Writer, columns []string, result *models.QueryResult) {
	if len(result.Rows) == 0 {
		fmt.Fprintln(w, "No rows.")
	} else {
		table := tablewriter.NewWriter(w)
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(true)
		table.SetHeader(columns)
		for _, row := range result.Rows {
			cells := make([]string, len(columns))
			for i, col := range columns {
				cells[i] = row[col]
			}
			table.Append(cells)
		}
		table.Render()
	}

	for _, insight := range result.Insights {
		fmt.Fprintln(w, "* "+insight)
	}
}

// renderList prints names as a single-column table under title.
func renderList(w io.Writer, title string, names []string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeader([]string{fmt.Sprintf("%s (%d)", title, len(names))})
	for _, n := range names {
		table.Append([]string{n})
	}
	table.Render()
}
