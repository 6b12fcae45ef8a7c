package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"pfwatch/internal/model"
	"pfwatch/internal/notify"
)

// AddTarget starts watching a listing. The detail is fetched first to seed
// the last update time; on failure nothing is registered. A listing that no
// longer exists is also dropped from the target store.
func (m *Monitor) AddTarget(ctx context.Context, id int64) error {
	l, err := m.source.FetchDetail(ctx, id)
	if err != nil {
		m.log.Error("add target", "listing_id", id, "error", err)
		m.notifier.ShowStatus(notify.Error, fmt.Sprintf("failed to add target %d", id))
		if errors.Is(err, model.ErrNotFound) && m.store != nil {
			if serr := m.store.RemoveTarget(ctx, id); serr != nil {
				m.log.Error("remove stored target", "listing_id", id, "error", serr)
			}
		}
		return fmt.Errorf("fetch listing %d: %w", id, err)
	}

	if _, ok := m.targets[id]; !ok {
		m.order = append(m.order, id)
	}
	m.targets[id] = &model.Target{ListingID: id, LastUpdate: l.UpdatedAt.Time}

	if m.store != nil {
		if err := m.store.AddTarget(ctx, id); err != nil {
			m.log.Error("store target", "listing_id", id, "error", err)
		}
	}
	m.log.Info("target added", "listing_id", id, "name", l.Name)
	m.notifier.ShowStatus(notify.OK, fmt.Sprintf("watching listing %d - %s", id, l.Name))
	return nil
}

// RemoveTarget stops watching a listing and reports whether it was watched.
func (m *Monitor) RemoveTarget(ctx context.Context, id int64) bool {
	if _, ok := m.targets[id]; !ok {
		return false
	}
	delete(m.targets, id)
	m.order = slices.DeleteFunc(m.order, func(v int64) bool { return v == id })

	if m.store != nil {
		if err := m.store.RemoveTarget(ctx, id); err != nil {
			m.log.Error("remove stored target", "listing_id", id, "error", err)
		}
	}
	m.log.Info("target removed", "listing_id", id)
	m.notifier.ShowStatus(notify.Warn, fmt.Sprintf("stopped watching listing %d", id))
	return true
}

// Targets returns the watched targets in the order they were added.
func (m *Monitor) Targets() []model.Target {
	out := make([]model.Target, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.targets[id])
	}
	return out
}

type refreshResult struct {
	id      int64
	listing *model.Listing
	err     error
}

// refreshTargets fetches the detail of every target concurrently. Results
// are returned in registry order and applied by the caller.
func (m *Monitor) refreshTargets(ctx context.Context) []refreshResult {
	ids := slices.Clone(m.order)
	results := make([]refreshResult, len(ids))
	if len(ids) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(len(ids))
	for i, id := range ids {
		g.Go(func() error {
			l, err := m.source.FetchDetail(ctx, id)
			results[i] = refreshResult{id: id, listing: l, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Monitor) showTargets(log *slog.Logger, results []refreshResult) {
	now := m.now()
	m.notifier.ShowStatus(notify.Info, fmt.Sprintf("watching %d target(s):", len(results)))
	for _, r := range results {
		if r.err != nil {
			log.Debug("target detail unavailable", "listing_id", r.id, "error", r.err)
			m.notifier.ShowStatus(notify.Error, fmt.Sprintf("  %d (detail unavailable)", r.id))
			continue
		}
		t := m.targets[r.id]
		m.notifier.ShowStatus(notify.Dim, fmt.Sprintf("  %d - %s (%d/%d, %s)",
			r.id, r.listing.Name, r.listing.SlotsFilled, r.listing.SlotsAvailable, notify.Ago(now, t.LastUpdate)))
	}
}

// checkTargets applies the lifecycle rules to every target still watched.
func (m *Monitor) checkTargets(ctx context.Context, log *slog.Logger, results []refreshResult) {
	now := m.now()
	for _, r := range results {
		t, ok := m.targets[r.id]
		if !ok {
			continue
		}

		switch {
		case errors.Is(r.err, model.ErrNotFound):
			m.notifier.ShowStatus(notify.Error, fmt.Sprintf("listing %d has ended or was deleted", r.id))
			m.RemoveTarget(ctx, r.id)

		case r.err != nil:
			log.Error("check target", "listing_id", r.id, "error", r.err)
			m.notifier.ShowStatus(notify.Warn, fmt.Sprintf("check listing %d failed: %v", r.id, r.err))

		case r.listing.UpdatedAt.After(t.LastUpdate):
			m.notifier.NotifyUpdated(*r.listing)
			t.LastUpdate = r.listing.UpdatedAt.Time
			t.Staleness = 0

		default:
			t.Staleness = now.Sub(t.LastUpdate)
			if t.Staleness > m.opts.ExpireThreshold {
				m.notifier.NotifyExpired(*r.listing,
					fmt.Sprintf("no update for over %d minutes", int(m.opts.ExpireThreshold.Minutes())))
				m.RemoveTarget(ctx, r.id)
			}
		}
	}
}
