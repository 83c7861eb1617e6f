package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalPrice(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1999", 2999},
		{"1999,5", 3000},
		{"1999.49", 2999},
		{"2 499", 3499},
		{" 2499 ", 3499},
		{"0", 1000},
		{"", 0},
		{"n/a", 0},
		{"12,3,4", 0},
		{"-500", 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FinalPrice(tc.in, DefaultMarkup), "input %q", tc.in)
	}
}

func TestFinalPriceCustomMarkup(t *testing.T) {
	assert.Equal(t, int64(2199), FinalPrice("1999", 200))
	assert.Equal(t, int64(0), FinalPrice("garbage", 200))
}

func TestFinalPriceNumericSweep(t *testing.T) {
	// Anything shaped \d+([.,]\d+)? must come out as round(value)+markup.
	for i := 0; i < 200; i++ {
		whole := i * 37
		frac := i % 100
		in := fmt.Sprintf("%d,%02d", whole, frac)
		want := int64(whole) + DefaultMarkup
		if frac >= 50 {
			want++
		}
		assert.Equal(t, want, FinalPrice(in, DefaultMarkup), "input %q", in)
	}
}
