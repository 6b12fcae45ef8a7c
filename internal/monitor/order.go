package monitor

import (
	"cmp"
	"slices"
	"time"

	"pfwatch/internal/model"
)

// sortListings orders listings the way the remote list does: most recently
// updated minute first, then duty type descending, then shortest remaining
// time first. Ties keep their input order.
func sortListings(ls []model.Listing) {
	slices.SortStableFunc(ls, func(a, b model.Listing) int {
		ta := a.UpdatedAt.Truncate(time.Minute)
		tb := b.UpdatedAt.Truncate(time.Minute)
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		if c := cmp.Compare(b.DutyType, a.DutyType); c != 0 {
			return c
		}
		return cmp.Compare(a.TimeLeft, b.TimeLeft)
	})
}
