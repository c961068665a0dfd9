package reports

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteCSV streams a report's lines as CSV. Amounts are rendered with
// grouping separators for spreadsheet consumers.
func WriteCSV(w io.Writer, report FinancialReport) error {
	printer := message.NewPrinter(language.English)
	out := csv.NewWriter(w)
	header := []string{"reportNumber", "accountCode", "accountName", "openingBalance",
		"debitAmount", "creditAmount", "endingBalance", "isSubTotal", "isTotal"}
	if err := out.Write(header); err != nil {
		return err
	}
	for _, line := range report.Lines {
		record := []string{
			report.ReportNumber,
			line.AccountCode,
			line.AccountName,
			printer.Sprintf("%.2f", line.OpeningBalance),
			printer.Sprintf("%.2f", line.DebitAmount),
			printer.Sprintf("%.2f", line.CreditAmount),
			printer.Sprintf("%.2f", line.EndingBalance),
			boolCell(line.IsSubTotal),
			boolCell(line.IsTotal),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

func boolCell(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
