package evaluation

import (
	"time"

	"github.com/wonny/demandcast/internal/contracts"
)

// Split holds a chronological train/test partition
type Split struct {
	Cutoff time.Time
	Train  []contracts.FeatureRow
	Test   []contracts.FeatureRow
}

// SplitByDate holds out the last testDays calendar days of the whole set.
// cutoff = last date - testDays; rows on or before the cutoff train, later rows test.
func SplitByDate(rows []contracts.FeatureRow, testDays int) (Split, error) {
	if testDays < 1 {
		return Split{}, contracts.NewConfigurationError("test_days must be >= 1, got %d", testDays)
	}
	if len(rows) == 0 {
		return Split{}, contracts.NewInsufficientHistoryError("no feature rows to split")
	}

	last := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.After(last) {
			last = r.Date
		}
	}

	s := Split{Cutoff: last.AddDate(0, 0, -testDays)}
	for _, r := range rows {
		if r.Date.After(s.Cutoff) {
			s.Test = append(s.Test, r)
		} else {
			s.Train = append(s.Train, r)
		}
	}

	if len(s.Train) == 0 {
		return s, contracts.NewInsufficientHistoryError(
			"no training rows on or before %s", s.Cutoff.Format("2006-01-02"))
	}
	return s, nil
}
