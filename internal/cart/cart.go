// Package cart holds the operator's accumulated sale lines. Every mutation is
// written through to the shared medium so a crash loses at most the in-flight
// operation.
package cart

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"gamezone/m/domain"
	"gamezone/m/internal/storage"
)

const storageKey = "gamezone_scanned_games"

// ErrBadIndex reports a line index outside the cart.
var ErrBadIndex = errors.New("cart: line index out of range")

// Cart is an ordered list of lines keyed by exact barcode; a barcode appears
// on at most one line.
type Cart struct {
	mu    sync.Mutex
	lines []domain.CartLine
	kv    storage.Store
}

// New creates a cart and restores any persisted snapshot. A missing or
// corrupt snapshot yields an empty cart.
func New(kv storage.Store) *Cart {
	c := &Cart{kv: kv}
	raw, ok, err := kv.Get(storageKey)
	if err != nil {
		log.Printf("cart: unable to read snapshot: %v", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &c.lines); err != nil {
			log.Printf("cart: corrupt snapshot, starting empty: %v", err)
			c.lines = nil
		}
	}
	return c
}

// Add merges the product into an existing line by exact barcode or appends a
// new line at quantity 1. unitPrice is snapshotted; later catalog changes do
// not touch existing lines.
func (c *Cart) Add(rec domain.ProductRecord, unitPrice int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Barcode == rec.Barcode {
			c.lines[i].Quantity++
			c.persist()
			return
		}
	}
	c.lines = append(c.lines, domain.CartLine{
		Name:      rec.Name,
		Barcode:   rec.Barcode,
		UnitPrice: unitPrice,
		Platform:  rec.Platform,
		Quantity:  1,
		Source:    rec,
	})
	c.persist()
}

// Adjust changes a line's quantity by delta, removing the line when the
// result drops below 1.
func (c *Cart) Adjust(index, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.lines) {
		return ErrBadIndex
	}
	if c.lines[index].Quantity+delta < 1 {
		c.lines = append(c.lines[:index], c.lines[index+1:]...)
	} else {
		c.lines[index].Quantity += delta
	}
	c.persist()
	return nil
}

// Remove deletes a line.
func (c *Cart) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.lines) {
		return ErrBadIndex
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	c.persist()
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.persist()
}

// Lines returns a copy of the current lines in order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Totals returns the cart amount and item count.
func (c *Cart) Totals() (amount int64, items int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range c.lines {
		amount += line.Total()
		items += line.Quantity
	}
	return amount, items
}

// Snapshot converts the lines into sale items for the ledger.
func (c *Cart) Snapshot() []domain.SaleItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]domain.SaleItem, len(c.lines))
	for i, line := range c.lines {
		items[i] = domain.SaleItem{
			Name:      line.Name,
			Platform:  line.Platform,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.Total(),
		}
	}
	return items
}

// persist writes the current lines; callers hold the lock.
func (c *Cart) persist() {
	raw, err := json.Marshal(c.lines)
	if err != nil {
		log.Printf("cart: unable to encode snapshot: %v", err)
		return
	}
	if err := c.kv.Set(storageKey, raw); err != nil {
		log.Printf("cart: unable to persist snapshot: %v", err)
	}
}
