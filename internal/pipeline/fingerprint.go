package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/wonny/demandcast/internal/contracts"
)

// Fingerprint hashes the normalized dataset.
// Histories must be ordered by product id, as runS0 produces them.
func Fingerprint(histories []*contracts.ProductHistory) string {
	h := sha256.New()
	for _, ph := range histories {
		fmt.Fprintf(h, "%s|%d\n", ph.ProductID, ph.Len())
		for _, r := range ph.Records {
			fmt.Fprintf(h, "%s,%g,%g,%g,%g,%g,%g,%t%t%t%t%t\n",
				r.Date.Format("2006-01-02"),
				r.UnitsSold, r.OnHand, r.Price, r.Cost, r.ReferencePrice, r.Margin,
				r.InventoryMissing, r.PriceMissing, r.CostMissing, r.ReferenceMissing, r.MarginMissing,
			)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
