// Package ledger keeps the append-only history of sales and app events for
// one device and reconciles it with the ledgers other devices persist into
// the same medium. The merge is a union bounded by a retention cap: it is
// idempotent and only grows, so interleaved merges from two devices both
// converge upward. Entries older than the cap can be evicted on one device
// before another ever merges them; that divergence is accepted.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"gamezone/m/domain"
	"gamezone/m/internal/metrics"
	"gamezone/m/internal/storage"
)

const (
	keyPrefix   = "gamezone_logs_"
	usagePrefix = "gamezone_usage_"
)

// Options bound the ledger's growth. Zero values take the defaults.
type Options struct {
	MaxSales      int
	MaxEvents     int
	RetentionDays int
	MaxDailyUsage int
}

func (o Options) withDefaults() Options {
	if o.MaxSales <= 0 {
		o.MaxSales = 1000
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = 500
	}
	if o.RetentionDays <= 0 {
		o.RetentionDays = 30
	}
	if o.MaxDailyUsage <= 0 {
		o.MaxDailyUsage = 100
	}
	return o
}

// Stats aggregates the sales history split into today vs all time.
type Stats struct {
	TotalSales   int   `json:"total_sales"`
	TotalRevenue int64 `json:"total_revenue"`
	TotalItems   int   `json:"total_items"`
	TodaySales   int   `json:"today_sales"`
	TodayRevenue int64 `json:"today_revenue"`
	TodayItems   int   `json:"today_items"`
}

// Ledger owns this device's merged view of the shared history.
type Ledger struct {
	mu       sync.Mutex
	deviceID string
	kv       storage.Store
	opts     Options
	events   []domain.AppEvent
	sales    []domain.SaleRecord

	now func() time.Time
}

// New restores the persisted ledger for the device. Missing or corrupt state
// starts empty.
func New(kv storage.Store, deviceID string, opts Options) *Ledger {
	l := &Ledger{
		deviceID: deviceID,
		kv:       kv,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
	l.load()
	return l
}

func (l *Ledger) key() string { return keyPrefix + l.deviceID }

func (l *Ledger) load() {
	raw, ok, err := l.kv.Get(l.key())
	if err != nil {
		log.Printf("ledger: unable to read state: %v", err)
		return
	}
	if !ok {
		return
	}
	var bundle domain.DeviceLedger
	if err := json.Unmarshal(raw, &bundle); err != nil {
		log.Printf("ledger: corrupt state, starting empty: %v", err)
		return
	}
	l.events = bundle.Events
	l.sales = bundle.Sales
}

// LogSale appends a completed sale built from the cart snapshot and returns
// the record for display. The id combines the timestamp and the device id.
func (l *Ledger) LogSale(items []domain.SaleItem) domain.SaleRecord {
	now := l.now()

	var amount int64
	var count int
	for _, item := range items {
		amount += item.LineTotal
		count += item.Quantity
	}

	sale := domain.SaleRecord{
		SaleID:      fmt.Sprintf("SALE_%d_%s", now.UnixMilli(), l.deviceID),
		Timestamp:   now,
		Items:       items,
		TotalAmount: amount,
		TotalItems:  count,
		DeviceID:    l.deviceID,
	}

	l.mu.Lock()
	l.sales = append(l.sales, sale)
	l.persist()
	l.mu.Unlock()

	metrics.SalesCompleted.Inc()
	log.Printf("ledger: sale %s: %d items, %d total", sale.SaleID, count, amount)
	return sale
}

// LogAction appends an application event.
func (l *Ledger) LogAction(action string, details map[string]string) domain.AppEvent {
	event := domain.AppEvent{
		Timestamp: l.now(),
		Action:    action,
		Details:   details,
		DeviceID:  l.deviceID,
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.persist()
	l.mu.Unlock()
	return event
}

// Sync merges every ledger bundle reachable under the shared prefix into this
// device's view: unknown sale ids and unknown (timestamp, action) events are
// appended, both lists are re-sorted ascending by time and truncated to the
// newest entries, and the result is persisted under this device's own key.
// Malformed peer bundles are skipped. Running Sync twice is the same as once.
func (l *Ledger) Sync() {
	keys, err := l.kv.Keys(keyPrefix)
	if err != nil {
		log.Printf("ledger: sync skipped: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seenSales := make(map[string]bool, len(l.sales))
	for _, sale := range l.sales {
		seenSales[sale.SaleID] = true
	}
	seenEvents := make(map[string]bool, len(l.events))
	for _, event := range l.events {
		seenEvents[eventKey(event)] = true
	}

	for _, key := range keys {
		raw, ok, err := l.kv.Get(key)
		if err != nil || !ok {
			continue
		}
		var bundle domain.DeviceLedger
		if err := json.Unmarshal(raw, &bundle); err != nil {
			log.Printf("ledger: skipping unreadable bundle %s: %v", key, err)
			continue
		}
		if bundle.DeviceID == "" || bundle.DeviceID == l.deviceID {
			continue
		}

		for _, sale := range bundle.Sales {
			if sale.SaleID == "" || seenSales[sale.SaleID] {
				continue
			}
			seenSales[sale.SaleID] = true
			l.sales = append(l.sales, sale)
		}
		for _, event := range bundle.Events {
			if seenEvents[eventKey(event)] {
				continue
			}
			seenEvents[eventKey(event)] = true
			l.events = append(l.events, event)
		}
	}

	sort.SliceStable(l.sales, func(i, j int) bool {
		return l.sales[i].Timestamp.Before(l.sales[j].Timestamp)
	})
	sort.SliceStable(l.events, func(i, j int) bool {
		return l.events[i].Timestamp.Before(l.events[j].Timestamp)
	})
	l.sales = keepNewestSales(l.sales, l.opts.MaxSales)
	l.events = keepNewestEvents(l.events, l.opts.MaxEvents)
	l.persist()

	metrics.LedgerSyncs.Inc()
	log.Printf("ledger: synced: %d sales, %d events", len(l.sales), len(l.events))
}

// Cleanup prunes sales older than the retention window and caps the event
// log. It runs on a slower cadence than Sync.
func (l *Ledger) Cleanup() {
	cutoff := l.now().AddDate(0, 0, -l.opts.RetentionDays)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.sales[:0]
	for _, sale := range l.sales {
		if sale.Timestamp.After(cutoff) {
			kept = append(kept, sale)
		}
	}
	l.sales = kept
	l.events = keepNewestEvents(l.events, l.opts.MaxEvents)
	l.persist()

	log.Printf("ledger: cleanup: %d sales, %d events remain", len(l.sales), len(l.events))
}

// Stats returns aggregate counts split into today and all time. Today starts
// at local midnight.
func (l *Ledger) Stats() Stats {
	midnight := dayStart(l.now())

	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	for _, sale := range l.sales {
		s.TotalSales++
		s.TotalRevenue += sale.TotalAmount
		s.TotalItems += sale.TotalItems
		if !sale.Timestamp.Before(midnight) {
			s.TodaySales++
			s.TodayRevenue += sale.TotalAmount
			s.TodayItems += sale.TotalItems
		}
	}
	return s
}

// SalesByPeriod filters the history by the tag's period: tags containing
// "today" cover the current local day, anything else covers all time.
func (l *Ledger) SalesByPeriod(tag string) []domain.SaleRecord {
	midnight := dayStart(l.now())

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.SaleRecord
	for _, sale := range l.sales {
		if containsToday(tag) && sale.Timestamp.Before(midnight) {
			continue
		}
		out = append(out, sale)
	}
	return out
}

// Sales returns a copy of the sale history, ascending by time.
func (l *Ledger) Sales() []domain.SaleRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.SaleRecord, len(l.sales))
	copy(out, l.sales)
	return out
}

// Events returns a copy of the event log, ascending by time.
func (l *Ledger) Events() []domain.AppEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AppEvent, len(l.events))
	copy(out, l.events)
	return out
}

// EraseAll deletes every device's bundle from the shared medium and resets
// the in-memory state. This is the only operation that removes sales.
func (l *Ledger) EraseAll() error {
	keys, err := l.kv.Keys(keyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := l.kv.Delete(key); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.sales = nil
	l.events = nil
	l.mu.Unlock()

	log.Printf("ledger: erased all bundles (%d keys)", len(keys))
	return nil
}

// TrackUsage appends to the day's usage bucket, capped to the newest entries.
// Buckets are per-day keys and are never merged across devices. The
// read-modify-write of the bucket runs under the ledger mutex so concurrent
// trackers do not drop each other's entries.
func (l *Ledger) TrackUsage(action string, data map[string]string) {
	now := l.now()
	key := usagePrefix + now.Format("2006-01-02")

	type usageEntry struct {
		Timestamp time.Time         `json:"timestamp"`
		Action    string            `json:"action"`
		Data      map[string]string `json:"data,omitempty"`
		DeviceID  string            `json:"deviceId"`
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var bucket []usageEntry
	raw, ok, err := l.kv.Get(key)
	if err == nil && ok {
		if err := json.Unmarshal(raw, &bucket); err != nil {
			bucket = nil
		}
	}

	bucket = append(bucket, usageEntry{Timestamp: now, Action: action, Data: data, DeviceID: l.deviceID})
	if len(bucket) > l.opts.MaxDailyUsage {
		bucket = bucket[len(bucket)-l.opts.MaxDailyUsage:]
	}

	encoded, err := json.Marshal(bucket)
	if err != nil {
		return
	}
	if err := l.kv.Set(key, encoded); err != nil {
		log.Printf("ledger: unable to persist usage bucket: %v", err)
	}
}

// Run drives the periodic reconciliation and cleanup until ctx is done. It
// only touches the ledger's own lists, so it is safe alongside foreground
// cart and scan operations.
func (l *Ledger) Run(ctx context.Context, syncEvery, cleanupEvery time.Duration) {
	l.Cleanup()
	l.Sync()

	syncTicker := time.NewTicker(syncEvery)
	cleanupTicker := time.NewTicker(cleanupEvery)
	defer syncTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			l.Sync()
		case <-cleanupTicker.C:
			l.Cleanup()
		}
	}
}

// persist writes the bundle under this device's key; callers hold the lock.
func (l *Ledger) persist() {
	bundle := domain.DeviceLedger{
		DeviceID:  l.deviceID,
		Events:    keepNewestEvents(l.events, l.opts.MaxEvents),
		Sales:     keepNewestSales(l.sales, l.opts.MaxSales),
		UpdatedAt: l.now(),
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		log.Printf("ledger: unable to encode state: %v", err)
		return
	}
	if err := l.kv.Set(l.key(), raw); err != nil {
		log.Printf("ledger: unable to persist state: %v", err)
	}
}

func eventKey(e domain.AppEvent) string {
	return e.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + e.Action
}

func keepNewestSales(sales []domain.SaleRecord, max int) []domain.SaleRecord {
	if len(sales) <= max {
		return sales
	}
	return sales[len(sales)-max:]
}

func keepNewestEvents(events []domain.AppEvent, max int) []domain.AppEvent {
	if len(events) <= max {
		return events
	}
	return events[len(events)-max:]
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsToday(tag string) bool {
	return strings.Contains(tag, "today")
}
