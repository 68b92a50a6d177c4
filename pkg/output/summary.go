package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/moria-dashboard/internal/report"
)

func summaryRows(s report.Summary) [][]string {
	bandProbability := fmt.Sprintf("%.2f", s.BandProbability)
	if s.BandProbabilityErr != "" {
		bandProbability = "-"
	}
	return [][]string{
		{"Start", s.Start},
		{"End", s.End},
		{"Cumulative return (%)", fmt.Sprintf("%.2f", s.CumulativeReturn)},
		{"Mean volatility (%)", fmt.Sprintf("%.2f", s.MeanVolatility)},
		{"Probability in band (%)", bandProbability},
		{"Funds", strings.Join(s.Funds, " ")},
	}
}

// SummaryPrettyFormat writes a report summary as aligned label and value
// lines.
func SummaryPrettyFormat(w io.Writer, s report.Summary) {
	_, _ = fmt.Fprintf(w, "--- Summary generated %s ---\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	rows := summaryRows(s)
	width := 0
	for _, r := range rows {
		if n := len(r[0]); n > width {
			width = n
		}
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%-*s : %s\n", width, r[0], r[1])
	}
	if s.BandProbabilityErr != "" {
		_, _ = fmt.Fprintf(w, "\nwarning: %s\n", s.BandProbabilityErr)
	}
}

// SummaryCsvFormat writes a report summary as a header line and one record.
func SummaryCsvFormat(w io.Writer, s report.Summary) {
	rows := summaryRows(s)
	header := make([]string, len(rows))
	record := make([]string, len(rows))
	for i, r := range rows {
		header[i] = r[0]
		record[i] = r[1]
	}
	writeCsvRow(w, header)
	writeCsvRow(w, record)
}
