package logic

import (
	"time"

	"github.com/samber/lo"

	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
)

// FindCheapest returns the record with the lowest total. Records without a
// valid total are ignored and on equal totals the earliest record wins.
func FindCheapest(records []model.PriceRecord) (model.PriceRecord, bool) {
	cheapest, _, found := FindCheapestWithSkipped(records)
	return cheapest, found
}

// FindCheapestWithSkipped is FindCheapest that also reports how many records
// were ignored because their total was not a number.
func FindCheapestWithSkipped(records []model.PriceRecord) (model.PriceRecord, int, bool) {
	valid := lo.Filter(records, func(r model.PriceRecord, _ int) bool {
		return r.Total.Valid
	})
	skipped := len(records) - len(valid)
	if len(valid) == 0 {
		return model.PriceRecord{}, skipped, false
	}

	cheapest := lo.MinBy(valid, func(a, b model.PriceRecord) bool {
		return a.Total.Decimal.LessThan(b.Total.Decimal)
	})
	return cheapest, skipped, true
}

// IsCurrentHour reports whether candidate falls in the same calendar hour as
// now, both evaluated in loc.
func IsCurrentHour(now, candidate time.Time, loc *time.Location) bool {
	if candidate.IsZero() {
		return false
	}
	n := now.In(loc)
	c := candidate.In(loc)
	return n.Year() == c.Year() &&
		n.Month() == c.Month() &&
		n.Day() == c.Day() &&
		n.Hour() == c.Hour()
}

// InvalidRecords returns the records FindCheapest ignores.
func InvalidRecords(records []model.PriceRecord) []model.PriceRecord {
	return lo.Reject(records, func(r model.PriceRecord, _ int) bool {
		return r.Total.Valid
	})
}
