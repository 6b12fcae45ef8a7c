package monitor

import "pfwatch/internal/model"

// notifiedSet holds listing ids that have already been surfaced.
type notifiedSet map[int64]struct{}

// recordNew returns the listings not seen before and marks them as seen.
func (s notifiedSet) recordNew(listings []model.Listing) []model.Listing {
	var fresh []model.Listing
	for _, l := range listings {
		if _, ok := s[l.ID]; ok {
			continue
		}
		s[l.ID] = struct{}{}
		fresh = append(fresh, l)
	}
	return fresh
}

func (s notifiedSet) clear() {
	clear(s)
}
