package analyzer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"AleoRisk/internal/domain/models"

	"github.com/xuri/excelize/v2"
)

// WorkbookContentType is the MIME type of .xlsx uploads.
const WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// IsWorkbook reports whether an upload should be read as a spreadsheet.
func IsWorkbook(filename, contentType string) bool {
	if strings.HasPrefix(contentType, WorkbookContentType) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".xlsx")
}

// ParseWorkbook reads the first sheet of an .xlsx workbook with the same
// column rules as Parse.
func ParseWorkbook(r io.Reader) (models.ParsedSeries, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.ParsedSeries{}, formatErrorf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.ParsedSeries{}, formatErrorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return models.ParsedSeries{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	// drop leading blank rows so the header is the first populated one
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	return ParseRows(rows)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
