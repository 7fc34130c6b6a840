package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var tableHeader = []string{"source", "source_id", "text", "label"}

// WriteTable persists the merged table as a spreadsheet. If spreadsheet
// serialization fails, it falls back to a delimited-text file next to the
// requested path and returns that path instead.
func WriteTable(path string, rows []Row, logger *zap.Logger) (string, error) {
	if err := writeXLSX(path, rows); err != nil {
		logger.Warn("Failed to save spreadsheet, falling back to CSV",
			zap.String("path", path), zap.Error(err))
		csvPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
		if err := writeCSV(csvPath, rows); err != nil {
			return "", fmt.Errorf("failed to save fallback CSV: %w", err)
		}
		return csvPath, nil
	}
	return path, nil
}

func writeXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetList()[0]
	if err := f.SetSheetRow(sheet, "A1", &[]any{"source", "source_id", "text", "label"}); err != nil {
		return err
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{row.Source, row.SourceID, row.Text, row.Label}
		if err := f.SetSheetRow(sheet, cellName, &values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tableHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.Source, row.SourceID, row.Text, strconv.Itoa(row.Label)}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
