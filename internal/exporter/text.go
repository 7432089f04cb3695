package exporter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"etlinspector/pkg/contracts/domain"
)

// WriteText prints a terminal summary followed by an aligned issue table.
func WriteText(w io.Writer, report domain.Report) error {
	fmt.Fprintf(w, "Source:   %s", report.Source)
	if report.Sheet != "" {
		fmt.Fprintf(w, " (sheet %s)", report.Sheet)
	}
	fmt.Fprintf(w, "\nShape:    %d rows x %d columns\n", report.Rows, report.Columns)
	fmt.Fprintf(w, "Problems: %d (priority %s, %d affected columns)\n\n",
		len(report.Issues), report.Priority(), len(report.AffectedColumns()))

	if report.Clean() {
		_, err := fmt.Fprintln(w, "No significant problems found. The file is ready for ETL.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tCHECK\tCOLUMN\tCOUNT\tDESCRIPTION")
	for _, issue := range report.Issues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			issue.Severity, issue.Check, issue.Location(), issue.Count, issue.Description)
	}
	return tw.Flush()
}
