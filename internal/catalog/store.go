package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"gamezone/m/domain"
	"gamezone/m/internal/storage"
)

// cacheKey is where the last good catalog lives in the shared medium.
const cacheKey = "gamezone_games_data"

// minResponseBytes guards against empty or truncated export responses; a
// shorter body is treated as "no update", not as an error.
const minResponseBytes = 100

// Store owns the in-memory catalog. The catalog is replaced wholesale on
// refresh; records themselves are immutable.
type Store struct {
	mu      sync.RWMutex
	records []domain.ProductRecord

	kv     storage.Store
	url    string
	markup int64
	client *http.Client
}

// NewStore creates a catalog store backed by the given medium. url may be
// empty, in which case Refresh is a no-op.
func NewStore(kv storage.Store, url string, markup int64) *Store {
	return &Store{
		kv:     kv,
		url:    url,
		markup: markup,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Load restores the cached catalog, falling back to the demo records when the
// cache is missing or unreadable.
func (s *Store) Load() {
	raw, ok, err := s.kv.Get(cacheKey)
	if err != nil {
		log.Printf("catalog: unable to read cache: %v", err)
	}
	if ok {
		var records []domain.ProductRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			log.Printf("catalog: corrupt cache, starting empty: %v", err)
		} else if len(records) > 0 {
			s.set(records, false)
			log.Printf("catalog: loaded %d records from cache", len(records))
			return
		}
	}
	s.set(demoRecords(), true)
	log.Printf("catalog: loaded %d demo records", len(demoRecords()))
}

// Refresh fetches the remote export and replaces the catalog when the
// response parses into at least one record. Network failures and too-short
// responses leave the cached catalog authoritative.
func (s *Store) Refresh(ctx context.Context) bool {
	if s.url == "" {
		return false
	}

	sep := "?"
	if strings.Contains(s.url, "?") {
		sep = "&"
	}
	url := fmt.Sprintf("%s%st=%d", s.url, sep, time.Now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Printf("catalog: bad refresh request: %v", err)
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("catalog: refresh skipped: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("catalog: refresh skipped: status %d", resp.StatusCode)
		return false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("catalog: refresh skipped: %v", err)
		return false
	}
	if len(body) < minResponseBytes {
		log.Printf("catalog: refresh skipped: response too short (%d bytes)", len(body))
		return false
	}

	records := ParseCSV(string(body))
	if len(records) == 0 {
		log.Printf("catalog: refresh skipped: no records parsed")
		return false
	}

	s.set(records, true)
	log.Printf("catalog: refreshed %d records", len(records))
	return true
}

// Replace installs records directly (seed files, tests) and persists them.
func (s *Store) Replace(records []domain.ProductRecord) {
	s.set(records, true)
}

// Records returns a copy of the catalog in order.
func (s *Store) Records() []domain.ProductRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProductRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the catalog size.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Resolve looks up a scanned code against the current catalog.
func (s *Store) Resolve(code string) (domain.ProductRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Resolve(s.records, code)
}

// Search scores the current catalog against a free-text query.
func (s *Store) Search(query string) []domain.ProductRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Search(s.records, query)
}

// Price derives the sale price for a record with the configured markup.
func (s *Store) Price(rec domain.ProductRecord) int64 {
	return FinalPrice(rec.WholesalePrice, s.markup)
}

func (s *Store) set(records []domain.ProductRecord, persist bool) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	if !persist {
		return
	}
	raw, err := json.Marshal(records)
	if err != nil {
		log.Printf("catalog: unable to encode cache: %v", err)
		return
	}
	if err := s.kv.Set(cacheKey, raw); err != nil {
		log.Printf("catalog: unable to persist cache: %v", err)
	}
}

// demoRecords is the built-in fallback so the kiosk works before the first
// successful refresh.
func demoRecords() []domain.ProductRecord {
	return []domain.ProductRecord{
		{Platform: "PS4", Barcode: "711719803278", Name: "The Last of Us Part II", Code: "CUSA-18278", CodeType: "CUSA", Language: "RUS", WholesalePrice: "1999", MarketplacePrice: "2499"},
		{Platform: "PS5", Barcode: "711719998653", Name: "Spider-Man: Miles Morales", Code: "PPSA-01462", CodeType: "PPSA", Language: "RUS", WholesalePrice: "2499", MarketplacePrice: "3499"},
		{Platform: "NS", Barcode: "045496873285", Name: "The Legend of Zelda: Breath of the Wild", Language: "ENG", WholesalePrice: "2999", MarketplacePrice: "3999"},
		{Platform: "XBOX ONE", Barcode: "889842414205", Name: "Halo Infinite", Language: "RUS", WholesalePrice: "2299", MarketplacePrice: "3299"},
	}
}
