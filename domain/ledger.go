package domain

import "time"

// SaleItem is one position of a completed sale.
type SaleItem struct {
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	UnitPrice int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"total"`
}

// SaleRecord is an append-only record of a completed sale. It is never
// mutated after creation; only a full log erase removes it.
type SaleRecord struct {
	SaleID      string     `json:"saleId"`
	Timestamp   time.Time  `json:"timestamp"`
	Items       []SaleItem `json:"items"`
	TotalAmount int64      `json:"totalAmount"`
	TotalItems  int        `json:"totalItems"`
	DeviceID    string     `json:"deviceId"`
}

// AppEvent is an append-only application event. Events are deduplicated by
// (timestamp, action) when ledgers from several devices are merged.
type AppEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	DeviceID  string            `json:"deviceId"`
}

// DeviceLedger is the persisted per-device bundle of events and sales, both
// kept in ascending timestamp order and capped to the most recent N entries.
type DeviceLedger struct {
	DeviceID  string       `json:"deviceId"`
	Events    []AppEvent   `json:"appLog"`
	Sales     []SaleRecord `json:"salesLog"`
	UpdatedAt time.Time    `json:"lastUpdated"`
}
