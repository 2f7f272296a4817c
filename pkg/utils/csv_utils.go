package utils

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"lrt-predictor/internal/domain/entity"
)

// HistoryCSVHeader is the export header row.
func HistoryCSVHeader() []string {
	header := make([]string, 0, entity.NumFeatures+1)
	for _, f := range entity.Features {
		header = append(header, f.Label)
	}
	return append(header, "Failure")
}

// WriteHistoryCSV writes the header and one row per entry, in the order given.
func WriteHistoryCSV(w io.Writer, entries []entity.HistoryEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(HistoryCSVHeader()); err != nil {
		return err
	}

	for _, e := range entries {
		record := make([]string, 0, entity.NumFeatures+1)
		for _, v := range e.Reading.Vector() {
			record = append(record, FormatFloat(v))
		}
		record = append(record, e.Prediction.Label())
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// FormatFloat renders v the way the readings were entered, keeping a ".0"
// on whole numbers so every value column reads as a float.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
