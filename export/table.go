package export

import (
	"fmt"
	"io"

	"csc-scraper/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintTable renders up to limit records as a console table.
// A limit of zero or less prints every record.
func PrintTable(w io.Writer, records []models.Record, limit int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Job ID", "Agency", "Region", "Position Title", "SG", "Monthly Salary", "Closing"})

	shown := records
	if limit > 0 && len(records) > limit {
		shown = records[:limit]
	}
	for _, r := range shown {
		salary := ""
		if r.MonthlySalary != nil {
			salary = fmt.Sprintf("%d", *r.MonthlySalary)
		}
		t.AppendRow(table.Row{
			r.JobID,
			text.Trim(r.Agency, 40),
			r.Region,
			text.Trim(r.PositionTitle, 40),
			r.SalaryGrade,
			salary,
			derefDate(formatDate(r.ClosingDate)),
		})
	}

	if len(shown) < len(records) {
		t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("... %d more", len(records)-len(shown))})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(records)})

	t.SetStyle(table.StyleRounded)
	t.Render()
}
