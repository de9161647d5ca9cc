package domain

// ProductID identifies a purchasable license tier and partitions the key pool.
type ProductID string

const (
	ProductWeekly   ProductID = "shadow-weekly"
	ProductMonthly  ProductID = "shadow-monthly"
	ProductLifetime ProductID = "shadow-lifetime"
)

// KnownProducts lists every sellable tier in display order.
var KnownProducts = []ProductID{ProductWeekly, ProductMonthly, ProductLifetime}

func (p ProductID) IsKnown() bool {
	for _, known := range KnownProducts {
		if p == known {
			return true
		}
	}
	return false
}

// KeyEntry is one unissued license key. It leaves the pool exactly once, when claimed.
type KeyEntry struct {
	Key       string
	ProductID ProductID
}
