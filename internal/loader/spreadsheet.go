package loader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/xuri/excelize/v2"
)

// loadSpreadsheet reads the stored cell values of the first sheet of an OOXML
// workbook; number formats are ignored. Legacy BIFF .xls files are not OOXML
// and fail here with a LoadError.
func loadSpreadsheet(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	var records [][]string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		records = append(records, row)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	header := dedupeColumns(records[0])
	return table.New(header, records[1:])
}
