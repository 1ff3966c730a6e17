package parsing

import (
	"regexp"
	"strconv"
	"strings"
)

// ZeroReceipt identifies a fiscal receipt that printed with a zero
// total and zero item count, i.e. no real content.
type ZeroReceipt struct {
	FSNo  string `json:"fsNo"`
	Total string `json:"total"`
	Items int    `json:"items"`
}

var (
	zeroHeaderRe = regexp.MustCompile(`FS No\.\s*(\d+)`)
	zeroTotalRe  = regexp.MustCompile(`TOTAL\s*\*?\s*([\d.,]+)`)
	zeroItemsRe  = regexp.MustCompile(`ITEM#\s*(\d+)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// FindZeroReceipts scans a document for receipts whose footer reports
// both a zero TOTAL and a zero ITEM# count. Receipts where either
// figure is missing or unreadable are not reported.
func FindZeroReceipts(text string) []ZeroReceipt {
	type fsBlock struct {
		fsNo string
		raw  []string
	}

	var blocks []fsBlock
	var current *fsBlock
	for _, line := range strings.Split(text, "\n") {
		if m := zeroHeaderRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				blocks = append(blocks, *current)
			}
			current = &fsBlock{fsNo: m[1]}
			continue
		}
		if current != nil {
			current.raw = append(current.raw, line)
		}
	}
	if current != nil {
		blocks = append(blocks, *current)
	}

	zero := make([]ZeroReceipt, 0)
	for _, b := range blocks {
		// Strip printer control carets and collapse whitespace so the
		// footer labels are matchable regardless of dialect.
		clean := strings.ReplaceAll(strings.Join(b.raw, "\n"), "^", "")
		clean = strings.ToUpper(whitespaceRe.ReplaceAllString(clean, " "))

		tm := zeroTotalRe.FindStringSubmatch(clean)
		im := zeroItemsRe.FindStringSubmatch(clean)
		if tm == nil || im == nil {
			continue
		}

		total, err := parseAmount(tm[1])
		if err != nil {
			continue
		}
		items, err := strconv.Atoi(im[1])
		if err != nil {
			continue
		}

		if total.IsZero() && items == 0 {
			zero = append(zero, ZeroReceipt{
				FSNo:  b.fsNo,
				Total: total.StringFixed(2),
				Items: items,
			})
		}
	}
	return zero
}
