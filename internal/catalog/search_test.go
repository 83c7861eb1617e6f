package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/m/domain"
)

func TestSearchRanksNameAboveBarcode(t *testing.T) {
	records := []domain.ProductRecord{
		{Name: "Gran Turismo 7", Barcode: "711719.spider.1"},
		{Name: "Spider-Man: Miles Morales", Barcode: "711719998653"},
	}

	got := Search(records, "spider")
	require.Len(t, got, 2)
	assert.Equal(t, "Spider-Man: Miles Morales", got[0].Name)
	assert.Equal(t, "Gran Turismo 7", got[1].Name)
}

func TestSearchAdditiveScoring(t *testing.T) {
	records := []domain.ProductRecord{
		{Name: "CUSA Collection", Barcode: "111111111111"},          // name only: 100
		{Name: "Other", Code: "CUSA-18278", Barcode: "cusa999999"},  // code+barcode: 150
	}

	got := Search(records, "cusa")
	require.Len(t, got, 2)
	assert.Equal(t, "Other", got[0].Name)
}

func TestSearchMinQueryLength(t *testing.T) {
	records := []domain.ProductRecord{{Name: "Zelda"}}

	assert.Nil(t, Search(records, "z"))
	assert.Nil(t, Search(records, "  z  "))
	assert.NotEmpty(t, Search(records, "ze"))
}

func TestSearchMinQueryLengthCountsRunes(t *testing.T) {
	records := []domain.ProductRecord{{Name: "Ведьмак 3: Дикая Охота"}}

	// One Cyrillic character is two bytes but still a one-character query.
	assert.Nil(t, Search(records, "в"))
	assert.Nil(t, Search(records, " В "))

	got := Search(records, "ведьмак")
	require.Len(t, got, 1)
	assert.Equal(t, "Ведьмак 3: Дикая Охота", got[0].Name)
}

func TestSearchCaseInsensitive(t *testing.T) {
	records := []domain.ProductRecord{{Name: "Halo Infinite"}}

	got := Search(records, "HALO")
	require.Len(t, got, 1)
	assert.Equal(t, "Halo Infinite", got[0].Name)
}

func TestSearchTiesKeepCatalogOrder(t *testing.T) {
	records := []domain.ProductRecord{
		{Name: "Mario Kart 8"},
		{Name: "Mario Odyssey"},
		{Name: "Mario Party"},
	}

	got := Search(records, "mario")
	require.Len(t, got, 3)
	assert.Equal(t, "Mario Kart 8", got[0].Name)
	assert.Equal(t, "Mario Odyssey", got[1].Name)
	assert.Equal(t, "Mario Party", got[2].Name)
}

func TestSearchDropsZeroScore(t *testing.T) {
	records := []domain.ProductRecord{
		{Name: "Zelda", Barcode: "111111111111"},
		{Name: "Halo", Barcode: "222222222222"},
	}

	got := Search(records, "zelda")
	require.Len(t, got, 1)
	assert.Equal(t, "Zelda", got[0].Name)
}
