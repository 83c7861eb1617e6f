package catalog

import (
	"strings"

	"gamezone/m/domain"
)

// Resolve finds the catalog record for a scanned code. The exact pass matches
// a code against each record's barcode alternates; only when nothing matches
// does the substring fallback run, which recovers codes with lost leading or
// trailing digits at the cost of possible false positives. The first match in
// catalog order wins.
func Resolve(records []domain.ProductRecord, code string) (domain.ProductRecord, bool) {
	clean := strings.TrimSpace(code)
	if clean == "" {
		return domain.ProductRecord{}, false
	}

	for _, rec := range records {
		for _, alt := range rec.BarcodeAlternates() {
			if alt == clean {
				return rec, true
			}
		}
	}

	for _, rec := range records {
		for _, alt := range rec.BarcodeAlternates() {
			if strings.Contains(clean, alt) || strings.Contains(alt, clean) {
				return rec, true
			}
		}
	}

	return domain.ProductRecord{}, false
}
