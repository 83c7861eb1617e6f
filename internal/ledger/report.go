package ledger

import (
	"fmt"
	"sort"
	"strings"

	"gamezone/m/domain"
)

const reportRule = "═══════════════════════════════════════════════════════════════"
const reportLine = "───────────────────────────────────────────────────────────────"

// ReportFilename returns the date-stamped name for the exported report.
func (l *Ledger) ReportFilename() string {
	return fmt.Sprintf("gamezone_sales_all_%s.txt", l.now().Format("2006-01-02"))
}

// Report renders the full human-readable sales report: aggregate stats,
// per-day totals, and the complete history grouped by day, newest day first.
func (l *Ledger) Report() string {
	stats := l.Stats()
	sales := l.Sales()

	var b strings.Builder
	b.WriteString(reportRule + "\n")
	b.WriteString("                     GAME ZONE - FULL SALES LOG\n")
	fmt.Fprintf(&b, "          Generated: %s\n", l.now().Format("02.01.2006 15:04:05"))
	fmt.Fprintf(&b, "          Device: %s\n", l.deviceID)
	b.WriteString(reportRule + "\n\n")

	b.WriteString("SALES TOTALS:\n")
	b.WriteString(reportLine + "\n")
	fmt.Fprintf(&b, "Sales: %d\n", stats.TotalSales)
	fmt.Fprintf(&b, "Items: %d pcs\n", stats.TotalItems)
	fmt.Fprintf(&b, "Revenue: %s rub\n\n", FormatPrice(stats.TotalRevenue))

	byDay := groupByDay(sales)
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	b.WriteString("DAILY TOTALS:\n")
	b.WriteString(reportLine + "\n")
	for _, day := range days {
		daySales := byDay[day]
		var revenue int64
		var items int
		for _, sale := range daySales {
			revenue += sale.TotalAmount
			items += sale.TotalItems
		}
		fmt.Fprintf(&b, "%s: %d sales, %d pcs, %s rub\n", displayDay(day), len(daySales), items, FormatPrice(revenue))
	}

	b.WriteString("\n" + reportRule + "\n")
	b.WriteString("                     FULL SALE HISTORY\n")
	b.WriteString(reportRule + "\n")

	for _, day := range days {
		daySales := byDay[day]
		var revenue int64
		var items int
		for _, sale := range daySales {
			revenue += sale.TotalAmount
			items += sale.TotalItems
		}

		fmt.Fprintf(&b, "\n%s\n", strings.Repeat("═", 60))
		fmt.Fprintf(&b, "  DAY: %s (%d sales, %d pcs, %s rub)\n", displayDay(day), len(daySales), items, FormatPrice(revenue))
		fmt.Fprintf(&b, "%s\n\n", strings.Repeat("═", 60))

		for _, sale := range daySales {
			fmt.Fprintf(&b, "SALE: %s [%s]\n", sale.SaleID, sale.DeviceID)
			fmt.Fprintf(&b, "TIME: %s\n", sale.Timestamp.Format("02.01.2006 15:04:05"))
			for i, item := range sale.Items {
				fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, item.Name, item.Platform)
				fmt.Fprintf(&b, "     %d pcs x %s rub = %s rub\n", item.Quantity, FormatPrice(item.UnitPrice), FormatPrice(item.LineTotal))
			}
			fmt.Fprintf(&b, "TOTAL: %d pcs for %s rub\n\n", sale.TotalItems, FormatPrice(sale.TotalAmount))
		}
	}

	return b.String()
}

// groupByDay buckets sales by local calendar day using a sortable key.
func groupByDay(sales []domain.SaleRecord) map[string][]domain.SaleRecord {
	out := make(map[string][]domain.SaleRecord)
	for _, sale := range sales {
		key := sale.Timestamp.Format("2006-01-02")
		out[key] = append(out[key], sale)
	}
	return out
}

func displayDay(key string) string {
	// key is yyyy-mm-dd; display as dd.mm.yyyy.
	if len(key) != 10 {
		return key
	}
	return key[8:10] + "." + key[5:7] + "." + key[0:4]
}

// FormatPrice renders an amount with thin thousands grouping: 12345 -> "12 345".
func FormatPrice(amount int64) string {
	digits := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)

	out := strings.Join(parts, " ")
	if neg {
		out = "-" + out
	}
	return out
}
