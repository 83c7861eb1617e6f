package domain

// CartLine is one cart position. UnitPrice is snapshotted when the product is
// first added and is not recomputed if the catalog changes afterwards.
type CartLine struct {
	Name      string        `json:"name"`
	Barcode   string        `json:"barcode"`
	UnitPrice int64         `json:"unit_price"`
	Platform  string        `json:"platform"`
	Quantity  int           `json:"quantity"`
	Source    ProductRecord `json:"source"`
}

// Total returns the line amount.
func (l CartLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
