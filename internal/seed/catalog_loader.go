package seed

import (
	"log"
	"os"
	"path/filepath"

	"gamezone/m/domain"
	"gamezone/m/internal/catalog"
)

// LoadCatalog ingests a local export file into the catalog store, replacing
// the demo fallback. Both the CSV and the XLSX export shapes are accepted.
// Failures are logged and leave the current catalog in place.
func LoadCatalog(store *catalog.Store, path string) {
	if path == "" {
		return
	}

	var records []domain.ProductRecord
	if filepath.Ext(path) == ".xlsx" {
		parsed, err := catalog.ParseXLSX(path)
		if err != nil {
			log.Printf("seed: unable to load catalog %s: %v", path, err)
			return
		}
		records = parsed
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("seed: unable to load catalog %s: %v", path, err)
			return
		}
		records = catalog.ParseCSV(string(raw))
	}

	if len(records) == 0 {
		log.Printf("seed: no records in %s, keeping current catalog", path)
		return
	}
	store.Replace(records)
	log.Printf("seed: loaded %d records from %s", len(records), path)
}
