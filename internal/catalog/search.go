package catalog

import (
	"sort"
	"strings"
	"unicode/utf8"

	"gamezone/m/domain"
)

// MinQueryLength is the shortest query the search will accept.
const MinQueryLength = 2

const (
	scoreName    = 100
	scoreCode    = 80
	scoreBarcode = 70
)

// Search scores catalog records against a free-text query. Name, code and
// barcode matches contribute independent additive scores; zero-score records
// are dropped and ties keep catalog order.
func Search(records []domain.ProductRecord, query string) []domain.ProductRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < MinQueryLength {
		return nil
	}

	type scored struct {
		rec   domain.ProductRecord
		score int
	}
	var results []scored

	for _, rec := range records {
		score := 0
		if rec.Name != "" && strings.Contains(strings.ToLower(rec.Name), q) {
			score += scoreName
		}
		if rec.Code != "" && strings.Contains(strings.ToLower(rec.Code), q) {
			score += scoreCode
		}
		for _, alt := range rec.BarcodeAlternates() {
			if strings.Contains(strings.ToLower(alt), q) {
				score += scoreBarcode
				break
			}
		}
		if score > 0 {
			results = append(results, scored{rec: rec, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	out := make([]domain.ProductRecord, len(results))
	for i, r := range results {
		out[i] = r.rec
	}
	return out
}
