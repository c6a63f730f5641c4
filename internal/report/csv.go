package report

import (
	"encoding/csv"
	"io"

	"github.com/Skufu/healthpredict/internal/predictor"
	"github.com/Skufu/healthpredict/internal/reconcile"
)

// CSVFilename is the attachment name used for downloaded batch results.
const CSVFilename = "bulk_predictions.csv"

// WriteCSV writes the batch inputs by canonical name followed by the
// Prediction, Probability and Severity columns.
func WriteCSV(w io.Writer, fields []reconcile.Field, b *predictor.Batch) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(fields)+3)
	for _, f := range fields {
		header = append(header, f.Canonical)
	}
	header = append(header, "Prediction", "Probability", "Severity")
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range b.Rows {
		record = record[:0]
		for _, v := range row.Values {
			record = append(record, formatValue(v))
		}
		record = append(record, row.LabelText, FormatPercent(row.Probability), row.Severity.String())
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
