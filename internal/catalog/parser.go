// Package catalog holds the product catalog: parsing of the tabular export,
// barcode resolution, free-text search and price derivation.
package catalog

import (
	"log"
	"strings"

	"gamezone/m/domain"
)

// minRowCells is the cell count a row must have to cover all four platform
// blocks. Shorter rows are malformed and skipped whole.
const minRowCells = 29

// platformBlock describes one fixed cell range of the export. Each row can
// yield up to four independent records, one per block.
type platformBlock struct {
	platformCell int
	barcodeCell  int
	nameCell     int
	codeCell     int // -1 when the platform family has no product code column
	languageCell int
	priceCell    int
	marketCell   int
	codeType     string
	matches      []string
}

var platformBlocks = []platformBlock{
	{0, 1, 2, 3, 4, 5, 6, "CUSA", []string{"PS4"}},
	{8, 9, 10, 11, 12, 13, 14, "PPSA", []string{"PS5"}},
	{16, 17, 18, -1, 19, 20, 21, "", []string{"NS", "Switch"}},
	{23, 24, 25, -1, 26, 27, 28, "", []string{"XBOX"}},
}

// ParseCSV parses the raw tabular export into catalog records. The first line
// is a header and is skipped. A malformed row is logged and skipped without
// aborting the rest of the parse.
func ParseCSV(text string) []domain.ProductRecord {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return nil
	}
	delim := detectDelimiter(lines[0])

	var records []domain.ProductRecord
	for i := 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := splitRow(line, delim)
		if len(cells) < minRowCells {
			log.Printf("catalog: skipping malformed row %d (%d cells)", i, len(cells))
			continue
		}
		records = append(records, extractRow(cells)...)
	}
	return records
}

// detectDelimiter picks ';' over ',' when the header clearly uses it.
func detectDelimiter(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// splitRow splits one line into cells. Quotes toggle an inside-quotes flag;
// the delimiter only separates cells while outside quotes.
func splitRow(line string, delim rune) []string {
	var cells []string
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == delim && !inQuotes:
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	cells = append(cells, strings.TrimSpace(current.String()))
	return cells
}

// extractRow pulls up to four records out of one well-sized row. A block is
// skipped when its platform cell does not match its family or when the
// barcode or name cell is empty.
func extractRow(cells []string) []domain.ProductRecord {
	var records []domain.ProductRecord
	for _, block := range platformBlocks {
		platform := cell(cells, block.platformCell)
		barcode := cell(cells, block.barcodeCell)
		name := cell(cells, block.nameCell)
		if platform == "" || barcode == "" || name == "" {
			continue
		}
		if !matchesFamily(platform, block.matches) {
			continue
		}

		rec := domain.ProductRecord{
			Platform:         platform,
			Barcode:          normalizeBarcode(barcode),
			Name:             name,
			Language:         cell(cells, block.languageCell),
			WholesalePrice:   cell(cells, block.priceCell),
			MarketplacePrice: cell(cells, block.marketCell),
		}
		if block.codeCell >= 0 {
			rec.Code = cell(cells, block.codeCell)
			rec.CodeType = block.codeType
		}
		records = append(records, rec)
	}
	return records
}

func matchesFamily(platform string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(platform, needle) {
			return true
		}
	}
	return false
}

// normalizeBarcode trims whitespace around each '/'-separated alternate.
func normalizeBarcode(raw string) string {
	if !strings.Contains(raw, "/") {
		return strings.TrimSpace(raw)
	}
	parts := strings.Split(raw, "/")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return strings.Join(parts, "/")
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
