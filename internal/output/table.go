package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/unit"
)

// Table renders tabular data for text output.
type Table struct {
	headers   []string
	rows      [][]string
	noHeader  bool
	separator string
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{
		headers:   headers,
		rows:      [][]string{},
		separator: "  ",
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// SetNoHeader suppresses the header row.
func (t *Table) SetNoHeader(noHeader bool) {
	t.noHeader = noHeader
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return nil
	}

	widths := t.calculateWidths()

	if !t.noHeader && len(t.headers) > 0 {
		if err := t.renderRow(w, t.headers, widths); err != nil {
			return err
		}
		if err := t.renderSeparatorLine(w, widths); err != nil {
			return err
		}
	}

	for _, row := range t.rows {
		if err := t.renderRow(w, row, widths); err != nil {
			return err
		}
	}

	return nil
}

// String returns the table as a string.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) calculateWidths() []int {
	numCols := len(t.headers)
	for _, row := range t.rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}

	widths := make([]int, numCols)
	for i, h := range t.headers {
		if len(h) > widths[i] {
			widths[i] = len(h)
		}
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < numCols && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	return widths
}

func (t *Table) renderRow(w io.Writer, cells []string, widths []int) error {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, t.separator))
	return err
}

func (t *Table) renderSeparatorLine(w io.Writer, widths []int) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, t.separator))
	return err
}

// FeeTable renders the three gas tiers with per-tier cost in the base
// asset and, when priced, in the selected native currency.
func FeeTable(options fee.Options, table *unit.PriceTable) *Table {
	t := NewTable("TIER", "GAS PRICE (GWEI)", "FEE (ETH)", "FEE (FIAT)", "ETA")
	baseAsset := unit.Asset{Symbol: unit.BaseAssetSymbol, Decimals: unit.BaseAssetDecimals}

	for _, opt := range []fee.Option{options.Slow, options.Average, options.Fast} {
		t.AddRow(
			string(opt.Tier),
			weiToGwei(opt.GasPriceWei),
			unit.FormatAsset(opt.FeeBase, baseAsset),
			unit.FormatNative(opt.FeeNative, table),
			formatETA(opt.EstimatedSeconds),
		)
	}
	return t
}

// QuoteTable renders native-currency quotes for a symbol list. Symbols
// the table has no quote for show the unavailable placeholder.
func QuoteTable(table *unit.PriceTable, symbols []string) *Table {
	t := NewTable("ASSET", "PRICE", "24H")
	for _, sym := range symbols {
		entry, ok := table.Lookup(sym)
		if !ok {
			entry = unit.PriceEntry{Price: unit.UnavailableNative()}
		}
		change := "--"
		if ok && !entry.Change.IsZero() {
			change = entry.Change.StringFixed(2) + "%"
		}
		t.AddRow(strings.ToUpper(sym), unit.FormatNative(entry.Price, table), change)
	}
	return t
}

// weiToGwei renders a wei gas price in gwei for display.
func weiToGwei(wei unit.BaseAmount) string {
	return unit.FromBaseUnits(wei, 9).String()
}

// formatETA renders a second count as a compact duration.
func formatETA(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Minute {
		return fmt.Sprintf("~%dm", int(d.Minutes()))
	}
	return "~" + strconv.Itoa(seconds) + "s"
}
