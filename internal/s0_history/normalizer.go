package s0_history

import (
	"sort"
	"time"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/pkg/logger"
)

// Normalizer turns irregular raw rows into contiguous daily histories
// ⭐ SSOT: ProductHistory 생성은 여기서만
type Normalizer struct {
	logger *logger.Logger
}

var _ contracts.HistoryNormalizer = (*Normalizer)(nil)

// NewNormalizer creates a new Normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{
		logger: log.WithField("module", "s0_history"),
	}
}

// Normalize builds the daily history of one product.
// Pure transform; the receiver only carries the logger used by NormalizeAll.
func (n *Normalizer) Normalize(productID string, raw []contracts.RawRecord) (*contracts.ProductHistory, error) {
	return Normalize(productID, raw)
}

// NormalizeAll groups rows by product and normalizes each one.
// Histories are ordered by product id; failed products are reported in errs.
func (n *Normalizer) NormalizeAll(raw []contracts.RawRecord) ([]*contracts.ProductHistory, []error) {
	groups := GroupByProduct(raw)

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	histories := make([]*contracts.ProductHistory, 0, len(ids))
	var errs []error
	for _, id := range ids {
		h, err := Normalize(id, groups[id])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		histories = append(histories, h)
	}

	n.logger.WithFields(map[string]interface{}{
		"raw_rows": len(raw),
		"products": len(histories),
		"failed":   len(errs),
	}).Info("Normalized histories")

	return histories, errs
}

// GroupByProduct splits rows by product id, keeping input order within a product
func GroupByProduct(raw []contracts.RawRecord) map[string][]contracts.RawRecord {
	groups := make(map[string][]contracts.RawRecord)
	for _, r := range raw {
		groups[r.ProductID] = append(groups[r.ProductID], r)
	}
	return groups
}

// dayValues is one calendar day after merging same-day rows
type dayValues struct {
	units     float64
	onHand    *float64
	price     *float64
	cost      *float64
	reference *float64
	margin    *float64
}

// Normalize builds one row per calendar day between the first and last record.
//   - units_sold: summed per day, 0 on days without rows
//   - other fields: last non-nil value of the day, else forward-filled;
//     flagged missing when no earlier value exists
func Normalize(productID string, raw []contracts.RawRecord) (*contracts.ProductHistory, error) {
	if productID == "" {
		return nil, contracts.NewDataError("empty product id")
	}
	if len(raw) == 0 {
		return nil, contracts.NewDataError("product %s has no records", productID)
	}

	days := make(map[time.Time]*dayValues, len(raw))
	var first, last time.Time
	for i, r := range raw {
		if r.ProductID != "" && r.ProductID != productID {
			return nil, contracts.NewDataError("record %d belongs to product %s, not %s", i, r.ProductID, productID)
		}
		if r.Date.IsZero() {
			return nil, contracts.NewDataError("product %s record %d has no date", productID, i)
		}

		d := contracts.DayOf(r.Date)
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}

		v, ok := days[d]
		if !ok {
			v = &dayValues{}
			days[d] = v
		}
		if r.UnitsSold != nil {
			v.units += *r.UnitsSold
		}
		v.onHand = latest(v.onHand, r.OnHand)
		v.price = latest(v.price, r.Price)
		v.cost = latest(v.cost, r.Cost)
		v.reference = latest(v.reference, r.ReferencePrice)
		v.margin = latest(v.margin, r.MarginIndicator)
	}

	n := contracts.DaysBetween(first, last) + 1
	records := make([]contracts.DailyRecord, n)

	var onHand, price, cost, reference, margin filled
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i)
		rec := contracts.DailyRecord{Date: d}

		v, observed := days[d]
		if !observed {
			v = &dayValues{}
		}
		rec.Observed = observed
		rec.UnitsSold = v.units

		rec.OnHand, rec.InventoryMissing, rec.InventoryImputed = onHand.next(v.onHand)
		rec.Price, rec.PriceMissing, rec.PriceImputed = price.next(v.price)
		rec.Cost, rec.CostMissing, _ = cost.next(v.cost)
		rec.ReferencePrice, rec.ReferenceMissing, _ = reference.next(v.reference)
		rec.Margin, rec.MarginMissing, _ = margin.next(v.margin)

		records[i] = rec
	}

	return &contracts.ProductHistory{ProductID: productID, Records: records}, nil
}

// filled carries the last known value of a field for forward-fill
type filled struct {
	value float64
	known bool
}

// next returns (value, missing, imputed) for a day given its own value
func (f *filled) next(today *float64) (float64, bool, bool) {
	if today != nil {
		f.value, f.known = *today, true
		return f.value, false, false
	}
	if f.known {
		return f.value, false, true
	}
	return 0, true, false
}

func latest(cur, next *float64) *float64 {
	if next != nil {
		return next
	}
	return cur
}
