package ledger

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/m/domain"
	"gamezone/m/internal/storage"
)

func saleItem(name string, price int64, qty int) domain.SaleItem {
	return domain.SaleItem{
		Name:      name,
		Platform:  "PS5",
		UnitPrice: price,
		Quantity:  qty,
		LineTotal: price * int64(qty),
	}
}

// clock hands out strictly increasing times so sale ids never collide.
type clock struct {
	t time.Time
}

func newClock(start time.Time) *clock { return &clock{t: start} }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestLogSaleTotalsAndID(t *testing.T) {
	l := New(storage.NewMemory(), "DEV_AAA111BBB", Options{})

	sale := l.LogSale([]domain.SaleItem{
		saleItem("A", 1000, 2),
		saleItem("B", 2500, 1),
	})

	assert.Equal(t, int64(4500), sale.TotalAmount)
	assert.Equal(t, 3, sale.TotalItems)
	assert.Equal(t, "DEV_AAA111BBB", sale.DeviceID)
	assert.Contains(t, sale.SaleID, "SALE_")
	assert.Contains(t, sale.SaleID, "_DEV_AAA111BBB")

	require.Len(t, l.Sales(), 1)
}

func TestLedgerRestoresFromMedium(t *testing.T) {
	kv := storage.NewMemory()

	l := New(kv, "DEV_AAA111BBB", Options{})
	l.LogSale([]domain.SaleItem{saleItem("A", 1000, 1)})
	l.LogAction("APP_START", nil)

	restored := New(kv, "DEV_AAA111BBB", Options{})
	assert.Len(t, restored.Sales(), 1)
	assert.Len(t, restored.Events(), 1)
}

func TestSyncMergesPeerSales(t *testing.T) {
	kv := storage.NewMemory()
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.Local)

	a := New(kv, "DEV_AAAAAAAAA", Options{})
	a.now = newClock(base).now
	b := New(kv, "DEV_BBBBBBBBB", Options{})
	b.now = newClock(base.Add(time.Hour)).now

	a.LogSale([]domain.SaleItem{saleItem("From A", 1000, 1)})
	b.LogSale([]domain.SaleItem{saleItem("From B", 2000, 1)})

	a.Sync()
	b.Sync()

	aSales := a.Sales()
	bSales := b.Sales()
	require.Len(t, aSales, 2)
	require.Len(t, bSales, 2)

	// Ascending by time on both devices.
	assert.Equal(t, "From A", aSales[0].Items[0].Name)
	assert.Equal(t, "From B", aSales[1].Items[0].Name)
	assert.Equal(t, aSales[0].SaleID, bSales[0].SaleID)
	assert.Equal(t, aSales[1].SaleID, bSales[1].SaleID)
}

func TestSyncIsIdempotent(t *testing.T) {
	kv := storage.NewMemory()
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.Local)

	a := New(kv, "DEV_AAAAAAAAA", Options{})
	a.now = newClock(base).now
	b := New(kv, "DEV_BBBBBBBBB", Options{})
	b.now = newClock(base.Add(time.Hour)).now

	a.LogSale([]domain.SaleItem{saleItem("From A", 1000, 1)})
	b.LogSale([]domain.SaleItem{saleItem("From B", 2000, 1)})
	b.LogAction("MODE_SWITCHED", nil)

	a.Sync()
	first := a.Sales()
	a.Sync()
	a.Sync()

	assert.Equal(t, first, a.Sales())
	assert.Len(t, a.Events(), 1)
}

func TestSyncSkipsOwnAndMalformedBundles(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(keyPrefix+"DEV_GARBAGE11", []byte("{not json")))

	// A bundle with no device id is ignored.
	require.NoError(t, kv.Set(keyPrefix+"DEV_EMPTY1111", []byte(`{"salesLog":[{"saleId":"SALE_1_X"}]}`)))

	l := New(kv, "DEV_AAAAAAAAA", Options{})
	l.LogSale([]domain.SaleItem{saleItem("Mine", 1000, 1)})
	l.Sync()

	assert.Len(t, l.Sales(), 1)
}

func TestSyncCapsAtMaxSales(t *testing.T) {
	kv := storage.NewMemory()
	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.Local)

	l := New(kv, "DEV_AAAAAAAAA", Options{MaxSales: 10})
	c := newClock(base)
	l.now = c.now

	for i := 0; i < 15; i++ {
		l.LogSale([]domain.SaleItem{saleItem(fmt.Sprintf("Game %d", i), 100, 1)})
	}
	l.Sync()

	sales := l.Sales()
	require.Len(t, sales, 10)
	// The newest survive.
	assert.Equal(t, "Game 14", sales[9].Items[0].Name)
	assert.Equal(t, "Game 5", sales[0].Items[0].Name)
}

func TestSyncRetainsNewestThousand(t *testing.T) {
	kv := storage.NewMemory()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.Local)

	l := New(kv, "DEV_AAAAAAAAA", Options{MaxSales: 1000, RetentionDays: 365})
	c := newClock(base)
	l.now = c.now

	for i := 0; i < 1200; i++ {
		l.LogSale([]domain.SaleItem{saleItem(fmt.Sprintf("Game %d", i), 100, 1)})
	}
	l.Sync()

	sales := l.Sales()
	require.Len(t, sales, 1000)
	assert.Equal(t, "Game 200", sales[0].Items[0].Name)
	assert.Equal(t, "Game 1199", sales[999].Items[0].Name)
}

func TestCleanupDropsOldSales(t *testing.T) {
	kv := storage.NewMemory()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)

	l := New(kv, "DEV_AAAAAAAAA", Options{RetentionDays: 30})

	l.now = func() time.Time { return now.AddDate(0, 0, -45) }
	l.LogSale([]domain.SaleItem{saleItem("Old", 1000, 1)})
	l.now = func() time.Time { return now }
	l.LogSale([]domain.SaleItem{saleItem("Recent", 2000, 1)})

	l.Cleanup()

	sales := l.Sales()
	require.Len(t, sales, 1)
	assert.Equal(t, "Recent", sales[0].Items[0].Name)
}

func TestStatsSplitsToday(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 0, 0, 0, time.Local)
	l := New(storage.NewMemory(), "DEV_AAAAAAAAA", Options{})

	l.now = func() time.Time { return now.AddDate(0, 0, -2) }
	l.LogSale([]domain.SaleItem{saleItem("Past", 1000, 1)})
	l.now = func() time.Time { return now }
	l.LogSale([]domain.SaleItem{saleItem("Today", 2000, 2)})

	s := l.Stats()
	assert.Equal(t, 2, s.TotalSales)
	assert.Equal(t, int64(5000), s.TotalRevenue)
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 1, s.TodaySales)
	assert.Equal(t, int64(4000), s.TodayRevenue)
	assert.Equal(t, 2, s.TodayItems)
}

func TestSalesByPeriod(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 0, 0, 0, time.Local)
	l := New(storage.NewMemory(), "DEV_AAAAAAAAA", Options{})

	l.now = func() time.Time { return now.AddDate(0, 0, -2) }
	l.LogSale([]domain.SaleItem{saleItem("Past", 1000, 1)})
	l.now = func() time.Time { return now }
	l.LogSale([]domain.SaleItem{saleItem("Today", 2000, 1)})

	assert.Len(t, l.SalesByPeriod("today"), 1)
	assert.Len(t, l.SalesByPeriod("sales_today"), 1)
	assert.Len(t, l.SalesByPeriod("all"), 2)
	assert.Len(t, l.SalesByPeriod(""), 2)
}

func TestEventDedupByTimestampAndAction(t *testing.T) {
	kv := storage.NewMemory()
	ts := time.Date(2026, 8, 20, 12, 0, 0, 0, time.Local)

	a := New(kv, "DEV_AAAAAAAAA", Options{})
	a.now = func() time.Time { return ts }
	a.LogAction("APP_START", nil)

	b := New(kv, "DEV_BBBBBBBBB", Options{})
	b.now = func() time.Time { return ts.Add(time.Minute) }
	b.LogAction("APP_START", nil)

	a.Sync()
	require.Len(t, a.Events(), 2)

	// A third device logged the same action at exactly the same instant; the
	// merge treats it as the same event.
	c := New(kv, "DEV_CCCCCCCCC", Options{})
	c.now = func() time.Time { return ts }
	c.LogAction("APP_START", nil)

	a.Sync()
	assert.Len(t, a.Events(), 2)
}

func TestEraseAllRemovesEveryBundle(t *testing.T) {
	kv := storage.NewMemory()

	a := New(kv, "DEV_AAAAAAAAA", Options{})
	b := New(kv, "DEV_BBBBBBBBB", Options{})
	a.LogSale([]domain.SaleItem{saleItem("A", 1000, 1)})
	b.LogSale([]domain.SaleItem{saleItem("B", 2000, 1)})

	require.NoError(t, a.EraseAll())

	assert.Empty(t, a.Sales())
	assert.Empty(t, a.Events())
	keys, err := kv.Keys(keyPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestTrackUsageCapsBucket(t *testing.T) {
	kv := storage.NewMemory()
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)

	l := New(kv, "DEV_AAAAAAAAA", Options{MaxDailyUsage: 5})
	l.now = func() time.Time { return now }

	for i := 0; i < 8; i++ {
		l.TrackUsage("scan", map[string]string{"n": fmt.Sprint(i)})
	}

	raw, ok, err := kv.Get(usagePrefix + "2026-08-29")
	require.NoError(t, err)
	require.True(t, ok)
	// Capped to the newest five entries.
	assert.Contains(t, string(raw), `"n":"7"`)
	assert.NotContains(t, string(raw), `"n":"2"`)
}

func TestTrackUsageConcurrentWritersKeepAllEntries(t *testing.T) {
	kv := storage.NewMemory()
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)

	l := New(kv, "DEV_AAAAAAAAA", Options{MaxDailyUsage: 100})
	l.now = func() time.Time { return now }

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.TrackUsage("scan", map[string]string{"n": fmt.Sprint(n)})
		}(i)
	}
	wg.Wait()

	raw, ok, err := kv.Get(usagePrefix + "2026-08-29")
	require.NoError(t, err)
	require.True(t, ok)

	var bucket []map[string]any
	require.NoError(t, json.Unmarshal(raw, &bucket))
	assert.Len(t, bucket, 20)
}
