package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction is one line-item sale that survived void cancellation.
// UnitPrice and LineTotal are fixed 2-decimal strings.
type Transaction struct {
	FSNo        string `json:"fsNo"`
	Date        string `json:"date"`
	BuyerTIN    string `json:"buyerTin"`
	MerchantTIN string `json:"merchantTin,omitempty"`
	MachineID   string `json:"machineId,omitempty"`
	Item        string `json:"item"`
	Qty         int    `json:"qty"`
	UnitPrice   string `json:"unitPrice"`
	LineTotal   string `json:"lineTotal"`
}

// Config controls the extraction rules that varied between receipt
// dialects: the footer keyword set, dash-run footer detection, the
// void-matching tolerance, and the metadata fallbacks/patterns.
type Config struct {
	// FooterKeywords terminate item scanning for a block when any of
	// them appears in the upper-cased line.
	FooterKeywords []string

	// DisableDashFooter turns off the lenient rule that a run of five
	// or more dash/en-dash characters also ends the block.
	DisableDashFooter bool

	// VoidTolerance is the maximum |positive + negative| for two
	// same-named items to cancel. Zero means exact matching.
	VoidTolerance decimal.Decimal

	// Fallbacks used when a block's header lacks the field.
	BuyerTINFallback    string
	MerchantTINFallback string
	MachineIDFallback   string

	// Patterns for the optional header fields. A nil pattern skips
	// extraction and the fallback is used directly.
	MerchantTINPattern *regexp.Regexp
	MachineIDPattern   *regexp.Regexp
}

// DefaultConfig returns the rules of the lenient dialect: the full
// footer keyword set, dash-run termination, 0.01 void tolerance and
// "CASH" for walk-in buyers without a TIN.
func DefaultConfig() Config {
	return Config{
		FooterKeywords: []string{
			"TXBL1", "TAX1", "TOTAL", "CASH", "ITEM#", "CHANGE",
			"^T^O^T^A^L", "SESSION Z REPORT",
		},
		VoidTolerance:      decimal.New(1, -2),
		BuyerTINFallback:   "CASH",
		MerchantTINPattern: regexp.MustCompile(`(?im)^TIN\s*[:#]?\s*(\d[\d\s./-]*)`),
		MachineIDPattern:   regexp.MustCompile(`(?i)\bMRC\s*[:#]?\s*([A-Z0-9-]+)`),
	}
}

var (
	blockDelimRe = regexp.MustCompile(`FS No\.\s+`)
	fsNoRe       = regexp.MustCompile(`^(\d+)`)
	dateRe       = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	buyerTINRe   = regexp.MustCompile(`(?i)BUYER'S TIN:\s*(\d+)`)

	// Quantity line, e.g. "2 x *826.090".
	qtyLineRe = regexp.MustCompile(`^(-?\d+)\s*x\s*\*([\d,.]+)`)
	// Item line, e.g. "ST.GEORGE *1,652.18". Caret control characters
	// show up inside names on some printers.
	itemLineRe = regexp.MustCompile(`(?i)^([A-Z\s.^0-9\-]+)\s*\*(-?[\d,.]+)`)

	dashRunRe     = regexp.MustCompile(`[–-]{5,}`)
	numericJunkRe = regexp.MustCompile(`[^0-9.\-]`)
)

// Parser extracts Transactions from plain-text fiscal receipt dumps.
// It is stateless between calls; the same input always yields the
// same output.
type Parser struct {
	cfg Config
}

// NewParser creates a Parser with DefaultConfig.
func NewParser() *Parser {
	return NewParserWithConfig(DefaultConfig())
}

// NewParserWithConfig creates a Parser with custom extraction rules.
func NewParserWithConfig(cfg Config) *Parser {
	return &Parser{cfg: cfg}
}

// Parse segments the document into receipt blocks, runs line-item
// extraction on each, cancels void pairs and returns the surviving
// transactions in document order. Malformed or unrecognized content
// is skipped, never an error.
func (p *Parser) Parse(text string) []Transaction {
	out := make([]Transaction, 0)
	for _, b := range p.segment(text) {
		out = append(out, p.cancelVoids(p.extractItems(b))...)
	}
	return out
}

// rawBlock is one receipt's trimmed lines plus header metadata.
type rawBlock struct {
	fsNo        string
	date        string
	buyerTIN    string
	merchantTIN string
	machineID   string
	lines       []string
}

// rawItem is a candidate sale line before void resolution. lineTotal
// keeps its sign; it becomes the Transaction's formatted LineTotal
// only if the item survives.
type rawItem struct {
	Transaction
	lineTotal decimal.Decimal
}

// segment splits the document at each "FS No." occurrence and pulls
// header metadata out of every block. Text before the first receipt
// and blocks without a leading serial number are discarded.
func (p *Parser) segment(text string) []rawBlock {
	parts := blockDelimRe.Split(text, -1)
	if len(parts) > 0 {
		parts = parts[1:]
	}

	blocks := make([]rawBlock, 0, len(parts))
	for _, part := range parts {
		m := fsNoRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		b := rawBlock{fsNo: m[1]}

		b.date = dateRe.FindString(part)

		if tin := buyerTINRe.FindStringSubmatch(part); tin != nil {
			b.buyerTIN = normalizeNumeric(tin[1])
		} else {
			b.buyerTIN = p.cfg.BuyerTINFallback
		}

		if p.cfg.MerchantTINPattern != nil {
			if tin := p.cfg.MerchantTINPattern.FindStringSubmatch(part); tin != nil {
				b.merchantTIN = normalizeNumeric(tin[1])
			}
		}
		if b.merchantTIN == "" {
			b.merchantTIN = p.cfg.MerchantTINFallback
		}

		if p.cfg.MachineIDPattern != nil {
			if mrc := p.cfg.MachineIDPattern.FindStringSubmatch(part); mrc != nil {
				b.machineID = strings.TrimSpace(mrc[1])
			}
		}
		if b.machineID == "" {
			b.machineID = p.cfg.MachineIDFallback
		}

		for _, line := range strings.Split(part, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				b.lines = append(b.lines, line)
			}
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// extractItems walks the block's lines accumulating pending
// quantity/unit-price state and emitting candidate items. Scanning
// stops for good at the first footer line.
func (p *Parser) extractItems(b rawBlock) []rawItem {
	items := make([]rawItem, 0)
	pendingQty := 1
	var pendingUnitPrice decimal.Decimal
	havePending := false

	for _, line := range b.lines {
		if p.isFooter(line) {
			break
		}

		if qty, unit, ok := parseQuantityLine(line); ok {
			// A second quantity line before any item overwrites the
			// first; last one wins.
			pendingQty = qty
			pendingUnitPrice = unit
			havePending = true
			continue
		}

		name, total, ok := parseItemLine(line)
		if !ok {
			continue
		}
		name = strings.TrimSpace(strings.ReplaceAll(name, "^", ""))

		// Header lines (serial number, date, TIN) can match the item
		// pattern; they are noise, not products.
		if name == b.fsNo || name == b.date || strings.Contains(name, "TIN") || len(name) < 2 {
			continue
		}

		// No quantity line seen this cycle means an implicit single
		// unit: the line total is the unit price.
		unit := total
		if havePending {
			unit = pendingUnitPrice
		}

		items = append(items, rawItem{
			Transaction: Transaction{
				FSNo:        b.fsNo,
				Date:        b.date,
				BuyerTIN:    b.buyerTIN,
				MerchantTIN: b.merchantTIN,
				MachineID:   b.machineID,
				Item:        name,
				Qty:         pendingQty,
				UnitPrice:   unit.Abs().StringFixed(2),
			},
			lineTotal: total,
		})

		pendingQty = 1
		havePending = false
	}
	return items
}

// isFooter reports whether the line ends item scanning for the block.
func (p *Parser) isFooter(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range p.cfg.FooterKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return !p.cfg.DisableDashFooter && dashRunRe.MatchString(line)
}

// parseQuantityLine matches "<qty> x *<amount>". A token that fails
// numeric parsing after separator stripping is treated as no match so
// the line falls through to the item pattern.
func parseQuantityLine(line string) (int, decimal.Decimal, bool) {
	m := qtyLineRe.FindStringSubmatch(line)
	if m == nil {
		return 0, decimal.Decimal{}, false
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, decimal.Decimal{}, false
	}
	unit, err := parseAmount(m[2])
	if err != nil {
		return 0, decimal.Decimal{}, false
	}
	return qty, unit, true
}

// parseItemLine matches "<name> *<signed amount>". The name is
// returned as captured; the caller strips carets and rejects
// metadata echoes.
func parseItemLine(line string) (string, decimal.Decimal, bool) {
	m := itemLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", decimal.Decimal{}, false
	}
	total, err := parseAmount(m[2])
	if err != nil {
		return "", decimal.Decimal{}, false
	}
	return m[1], total, true
}

// parseAmount parses a printed amount after stripping comma
// thousands-separators.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

// normalizeNumeric strips everything but digits, '.' and '-' from a
// numeric metadata field.
func normalizeNumeric(s string) string {
	return numericJunkRe.ReplaceAllString(s, "")
}

// cancelVoids removes matched sale/reversal pairs from one block's
// items. Each positive item pairs with the nearest unconsumed later
// item of the same name whose total negates it within the tolerance;
// both disappear. Unmatched positives survive with LineTotal fixed to
// two decimals, in emission order. Unclaimed negatives are dropped.
func (p *Parser) cancelVoids(items []rawItem) []Transaction {
	consumed := make([]bool, len(items))
	survivors := make([]Transaction, 0, len(items))

	for i, it := range items {
		if consumed[i] || !it.lineTotal.IsPositive() {
			continue
		}

		matched := false
		for j := i + 1; j < len(items); j++ {
			if consumed[j] || items[j].Item != it.Item {
				continue
			}
			if p.cancels(it.lineTotal, items[j].lineTotal) {
				consumed[i] = true
				consumed[j] = true
				matched = true
				break
			}
		}

		if !matched {
			t := it.Transaction
			t.LineTotal = it.lineTotal.StringFixed(2)
			survivors = append(survivors, t)
		}
	}
	return survivors
}

// cancels reports whether two line totals form a void pair.
func (p *Parser) cancels(a, b decimal.Decimal) bool {
	sum := a.Add(b).Abs()
	if p.cfg.VoidTolerance.IsZero() {
		return sum.IsZero()
	}
	return sum.LessThan(p.cfg.VoidTolerance)
}
