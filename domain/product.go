package domain

import "strings"

// ProductRecord is one catalog entry. The barcode field may hold several
// '/'-separated alternates for different packagings of the same product.
type ProductRecord struct {
	Platform         string `json:"platform"`
	Barcode          string `json:"barcode"`
	Name             string `json:"name"`
	Code             string `json:"code"`
	CodeType         string `json:"code_type"`
	Language         string `json:"language"`
	WholesalePrice   string `json:"wholesale_price"`
	MarketplacePrice string `json:"marketplace_price"`
}

// BarcodeAlternates splits the barcode field on '/' and trims each value.
func (p ProductRecord) BarcodeAlternates() []string {
	parts := strings.Split(p.Barcode, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// PrimaryBarcode returns the first alternate, used as the record identity.
func (p ProductRecord) PrimaryBarcode() string {
	alts := p.BarcodeAlternates()
	if len(alts) == 0 {
		return ""
	}
	return alts[0]
}
