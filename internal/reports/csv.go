package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// WriteSummaryCSV serialises the ledger summary to CSV. Amounts are grouped
// decimals of major units; raw values stay in minor units everywhere else.
func WriteSummaryCSV(w io.Writer, summary LedgerSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Account", "Name", "Type", "Debit", "Credit", "Balance"}); err != nil {
		return err
	}
	for _, row := range summary.Rows {
		record := []string{
			row.AccountCode,
			row.AccountName,
			row.AccountType,
			formatAmount(row.Debit),
			formatAmount(row.Credit),
			formatAmount(row.Balance),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return sign + amountPrinter.Sprintf("%d", minor/100) + "." + pad2(minor%100)
}

func pad2(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
