package keysource

import (
	"strings"

	"github.com/shadowcc/keyshop/internal/domain"
)

const fileHeader = `# Shadow.CC License Keys
# Format: KEY|PRODUCT_ID
# Add your keys below (one per line):
#
`

var productLabels = map[domain.ProductID]string{
	domain.ProductWeekly:   "# Weekly Keys",
	domain.ProductMonthly:  "# Monthly Keys",
	domain.ProductLifetime: "# Lifetime Keys",
}

// Format renders entries as a key file: known products first in display
// order, then any other products in order of first appearance.
func Format(entries []domain.KeyEntry) string {
	grouped := make(map[domain.ProductID][]string)
	var extra []domain.ProductID
	for _, e := range entries {
		if _, seen := grouped[e.ProductID]; !seen && !e.ProductID.IsKnown() {
			extra = append(extra, e.ProductID)
		}
		grouped[e.ProductID] = append(grouped[e.ProductID], e.Key)
	}

	var b strings.Builder
	b.WriteString(fileHeader)
	writeGroup := func(product domain.ProductID, label string) {
		keys := grouped[product]
		if len(keys) == 0 {
			return
		}
		b.WriteString(label)
		b.WriteByte('\n')
		for _, key := range keys {
			b.WriteString(key)
			b.WriteByte('|')
			b.WriteString(string(product))
			b.WriteByte('\n')
		}
	}
	for _, product := range domain.KnownProducts {
		writeGroup(product, productLabels[product])
	}
	for _, product := range extra {
		writeGroup(product, "# "+string(product))
	}
	return b.String()
}
