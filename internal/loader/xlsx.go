package loader

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ccna-trainer/backend/internal/models"
)

// ParseXLSX reads rows from a spreadsheet export. An empty sheet name selects
// the first sheet; the first row is the header.
func ParseXLSX(r io.Reader, sheet string) ([]models.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("WARNING: [loader] closing workbook: %v", err)
		}
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]models.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		rows = append(rows, zipRow(header, record))
	}
	return rows, nil
}
