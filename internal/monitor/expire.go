package monitor

import (
	"context"

	"pfwatch/internal/model"
)

// confirmedPrefix returns the last index k such that remaining time is
// non-decreasing over seq[0..k]. Listings past k were pushed down by newer
// ones and are not reliably current.
func confirmedPrefix(seq []model.Listing) int {
	for i := 1; i < len(seq); i++ {
		if seq[i].TimeLeft < seq[i-1].TimeLeft {
			return i - 1
		}
	}
	return len(seq) - 1
}

// vanishedByOrder returns listings from the confirmed prefix of prev that
// are absent from the whole of current. The prefix boundary is computed on
// current. It returns nil when current has fewer than two listings or prev is
// empty.
func vanishedByOrder(prev, current []model.Listing) []model.Listing {
	if len(current) < 2 || len(prev) == 0 {
		return nil
	}
	k := confirmedPrefix(current)

	present := make(map[int64]struct{}, len(current))
	for _, l := range current {
		present[l.ID] = struct{}{}
	}

	var gone []model.Listing
	for _, l := range prev[:min(k+1, len(prev))] {
		if _, ok := present[l.ID]; !ok {
			gone = append(gone, l)
		}
	}
	return gone
}

// expireByOrder removes watched targets that dropped out of the listing
// since the previous cycle.
func (m *Monitor) expireByOrder(ctx context.Context, current []model.Listing) {
	for _, l := range vanishedByOrder(m.snapshot, current) {
		if _, ok := m.targets[l.ID]; !ok {
			continue
		}
		m.notifier.NotifyExpired(l, "no longer present in listing")
		m.RemoveTarget(ctx, l.ID)
	}
}
