package contracts

import (
	"math"
	"time"
)

// RawRecord is one source row before normalization.
// nil 포인터 = 원본에 값이 없음
type RawRecord struct {
	ProductID       string    `json:"product_id"`
	Date            time.Time `json:"date"`
	UnitsSold       *float64  `json:"units_sold,omitempty"`
	OnHand          *float64  `json:"on_hand,omitempty"`
	Price           *float64  `json:"price,omitempty"`
	Cost            *float64  `json:"cost,omitempty"`
	ReferencePrice  *float64  `json:"reference_price,omitempty"`
	MarginIndicator *float64  `json:"margin,omitempty"`
}

// DailyRecord is one calendar day of a normalized product history
type DailyRecord struct {
	Date           time.Time `json:"date"`
	UnitsSold      float64   `json:"units_sold"`
	OnHand         float64   `json:"on_hand"`
	Price          float64   `json:"price"`
	Cost           float64   `json:"cost"`
	ReferencePrice float64   `json:"reference_price"`
	Margin         float64   `json:"margin"` // supplied margin indicator

	Observed         bool `json:"observed"` // at least one raw row existed for the day
	InventoryMissing bool `json:"inventory_missing"`
	PriceMissing     bool `json:"price_missing"`
	CostMissing      bool `json:"cost_missing"`
	ReferenceMissing bool `json:"reference_missing"`
	MarginMissing    bool `json:"margin_missing"`

	// forward-filled from an earlier day
	InventoryImputed bool `json:"inventory_imputed"`
	PriceImputed     bool `json:"price_imputed"`
}

// InventoryGap reports inventory absent from the source on this day
func (r DailyRecord) InventoryGap() bool {
	return r.InventoryMissing || r.InventoryImputed
}

// PriceGap reports price absent from the source on this day
func (r DailyRecord) PriceGap() bool {
	return r.PriceMissing || r.PriceImputed
}

// UnitMargin returns (price - cost) / price, falling back to the supplied
// margin indicator. ok is false when neither is known.
func (r DailyRecord) UnitMargin() (margin float64, ok bool) {
	if !r.PriceMissing && !r.CostMissing && r.Price > 0 {
		return (r.Price - r.Cost) / r.Price, true
	}
	if !r.MarginMissing {
		return r.Margin, true
	}
	return 0, false
}

// IsStockout reports a known zero on-hand day
func (r DailyRecord) IsStockout() bool {
	return !r.InventoryMissing && r.OnHand == 0
}

// ProductHistory is a contiguous daily series for one product.
// Invariant: one record per calendar day, strictly increasing, no gaps.
type ProductHistory struct {
	ProductID string        `json:"product_id"`
	Records   []DailyRecord `json:"records"`
}

// Len returns the number of days
func (h *ProductHistory) Len() int {
	return len(h.Records)
}

// FirstDate returns the first observed day (launch)
func (h *ProductHistory) FirstDate() time.Time {
	if len(h.Records) == 0 {
		return time.Time{}
	}
	return h.Records[0].Date
}

// LastDate returns the last observed day
func (h *ProductHistory) LastDate() time.Time {
	if len(h.Records) == 0 {
		return time.Time{}
	}
	return h.Records[len(h.Records)-1].Date
}

// Sales returns units sold per day
func (h *ProductHistory) Sales() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.UnitsSold
	}
	return out
}

// IndexOf returns the record index for date, or -1 when outside the history
func (h *ProductHistory) IndexOf(date time.Time) int {
	if len(h.Records) == 0 {
		return -1
	}
	idx := DaysBetween(h.FirstDate(), DayOf(date))
	if idx < 0 || idx >= len(h.Records) {
		return -1
	}
	return idx
}

// Prefix returns the history truncated to records[0..end] (inclusive).
// The records slice is shared; callers must not mutate it.
func (h *ProductHistory) Prefix(end int) *ProductHistory {
	if end >= len(h.Records)-1 {
		return h
	}
	if end < 0 {
		return &ProductHistory{ProductID: h.ProductID}
	}
	return &ProductHistory{ProductID: h.ProductID, Records: h.Records[:end+1]}
}

// Window returns up to days records ending at index end (inclusive)
func (h *ProductHistory) Window(end, days int) []DailyRecord {
	if end < 0 || days <= 0 || len(h.Records) == 0 {
		return nil
	}
	if end >= len(h.Records) {
		end = len(h.Records) - 1
	}
	start := end - days + 1
	if start < 0 {
		start = 0
	}
	return h.Records[start : end+1]
}

// MarkdownAt returns (reference - price) / reference on day t.
// The reference is the supplied reference price, else the max price seen up to t.
func (h *ProductHistory) MarkdownAt(t int) float64 {
	if t < 0 || t >= len(h.Records) {
		return 0
	}
	rec := h.Records[t]
	if rec.PriceMissing {
		return 0
	}

	ref := 0.0
	if !rec.ReferenceMissing && rec.ReferencePrice > 0 {
		ref = rec.ReferencePrice
	} else {
		for i := 0; i <= t; i++ {
			if !h.Records[i].PriceMissing && h.Records[i].Price > ref {
				ref = h.Records[i].Price
			}
		}
	}
	if ref <= 0 {
		return 0
	}
	return (ref - rec.Price) / ref
}

// DayOf truncates t to its UTC calendar day
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DayOf(b).Sub(DayOf(a)).Hours() / 24))
}
