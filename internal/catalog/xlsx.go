package catalog

import (
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"gamezone/m/domain"
)

// ParseXLSX extracts catalog records from the first sheet of an .xlsx export,
// using the same four platform blocks as the CSV shape. The first row is a
// header. Short rows are skipped like malformed CSV rows.
func ParseXLSX(path string) ([]domain.ProductRecord, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s: %w", sheets[0], err)
	}

	var records []domain.ProductRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < minRowCells {
			log.Printf("catalog: skipping short xlsx row %d (%d cells)", i, len(row))
			continue
		}
		records = append(records, extractRow(row)...)
	}
	return records, nil
}
