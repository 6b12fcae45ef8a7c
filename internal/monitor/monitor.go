// Package monitor runs the poll loop: it searches listings for every
// configured condition, notifies about new matches and tracks watched
// listings until they end.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"pfwatch/internal/command"
	"pfwatch/internal/model"
	"pfwatch/internal/notify"
)

// Source is the remote listing service.
type Source interface {
	FetchAll(ctx context.Context, cond model.FilterCondition, maxPages int) ([]model.Listing, error)
	FetchDetail(ctx context.Context, id int64) (*model.Listing, error)
}

// Filter applies the local detail stage of a condition.
type Filter interface {
	Apply(ctx context.Context, listings []model.Listing, cond model.FilterCondition) ([]model.Listing, []error)
}

// TargetStore persists watched listing ids across restarts.
type TargetStore interface {
	AddTarget(ctx context.Context, id int64) error
	RemoveTarget(ctx context.Context, id int64) error
}

// Condition is a labeled filter condition searched every cycle.
type Condition struct {
	Label  string
	Filter model.FilterCondition
}

// Options configures the poll loop.
type Options struct {
	CheckInterval   time.Duration
	ExpireThreshold time.Duration
	MaxPages        int
}

// Monitor owns the notified set, the target registry and the last poll
// snapshot. Apart from construction and the setters, its methods must only
// be called from the goroutine running Run.
type Monitor struct {
	source   Source
	filter   Filter
	notifier notify.Notifier
	store    TargetStore
	log      *slog.Logger
	opts     Options
	now      func() time.Time

	notified  notifiedSet
	targets   map[int64]*model.Target
	order     []int64
	snapshot  []model.Listing
	displayed map[int64]struct{}
	cycles    int
}

// New creates a Monitor.
func New(source Source, filter Filter, notifier notify.Notifier, opts Options, log *slog.Logger) *Monitor {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 90 * time.Second
	}
	if opts.ExpireThreshold <= 0 {
		opts.ExpireThreshold = 300 * time.Second
	}
	return &Monitor{
		source:    source,
		filter:    filter,
		notifier:  notifier,
		log:       log,
		opts:      opts,
		now:       time.Now,
		notified:  notifiedSet{},
		targets:   map[int64]*model.Target{},
		displayed: map[int64]struct{}{},
	}
}

// SetTargetStore makes target additions and removals persistent.
func (m *Monitor) SetTargetStore(s TargetStore) {
	m.store = s
}

// SetClock overrides the wall clock used for staleness.
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Run polls until ctx is cancelled or a stop command arrives. Commands are
// handled between cycles while the loop sleeps.
func (m *Monitor) Run(ctx context.Context, conds []Condition, commands <-chan command.Command) {
	m.notifier.ShowStatus(notify.OK, fmt.Sprintf("monitoring started, %d condition(s), checking every %s",
		len(conds), m.opts.CheckInterval))
	m.notifier.ShowStatus(notify.Warn, "type q and press Enter to stop")

	for {
		m.runCycle(ctx, conds)
		if ctx.Err() != nil {
			break
		}
		if !m.sleep(ctx, commands) {
			break
		}
	}

	m.notifier.ShowStatus(notify.Dim, "monitoring stopped")
}

func (m *Monitor) runCycle(ctx context.Context, conds []Condition) {
	log := m.log.With("cycle_id", uuid.NewString())
	log.Debug("cycle started", "conditions", len(conds), "targets", len(m.targets))

	var all []model.Listing
	complete := true
	for _, c := range conds {
		if ctx.Err() != nil {
			return
		}
		found, skipped, err := m.search(ctx, log, c)
		if err != nil {
			log.Error("search listings", "label", c.Label, "error", err)
			m.notifier.ShowStatus(notify.Error, fmt.Sprintf("search %q failed: %v", c.Label, err))
			complete = false
			continue
		}
		if skipped > 0 {
			complete = false
		}
		all = append(all, found...)
	}
	if ctx.Err() != nil {
		return
	}

	sortListings(all)

	if len(m.targets) > 0 {
		results := m.refreshTargets(ctx)
		m.showTargets(log, results)
		if complete {
			m.expireByOrder(ctx, all)
		} else {
			log.Warn("listing incomplete, order check skipped")
		}
		m.checkTargets(ctx, log, results)
	} else {
		m.showIfChanged(all)
	}
	// A partial listing would make absent ids look gone next cycle.
	if complete {
		m.snapshot = all
	}
	m.cycles++

	log.Info("cycle finished", "listings", len(all), "targets", len(m.targets))
	m.notifier.ShowStatus(notify.Dim, fmt.Sprintf("check complete: %d listing(s), watching %d target(s)",
		len(all), len(m.targets)))
}

// search runs one condition and returns its matches and the number of
// listings dropped because their detail could not be fetched.
func (m *Monitor) search(ctx context.Context, log *slog.Logger, c Condition) ([]model.Listing, int, error) {
	listings, err := m.source.FetchAll(ctx, c.Filter, m.opts.MaxPages)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch listings: %w", err)
	}

	matched, errs := m.filter.Apply(ctx, listings, c.Filter)
	for _, err := range errs {
		log.Warn("detail filter", "label", c.Label, "error", err)
	}
	if len(errs) > 0 {
		m.notifier.ShowStatus(notify.Warn, fmt.Sprintf("%s: skipped %d listing(s), detail unavailable", c.Label, len(errs)))
	}

	if fresh := m.notified.recordNew(matched); len(fresh) > 0 {
		log.Info("found new listings", "label", c.Label, "count", len(fresh))
		m.notifier.NotifyFound(fresh, c.Label, len(m.targets) == 0)
	}
	return matched, len(errs), nil
}

func (m *Monitor) showIfChanged(all []model.Listing) {
	if len(all) == 0 {
		return
	}
	current := make(map[int64]struct{}, len(all))
	for _, l := range all {
		current[l.ID] = struct{}{}
	}
	if maps.Equal(current, m.displayed) {
		return
	}
	m.notifier.ShowListings("Current listings", all)
	m.displayed = current
}

func (m *Monitor) sleep(ctx context.Context, commands <-chan command.Command) bool {
	timer := time.NewTimer(m.opts.CheckInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if !m.handleCommand(ctx, cmd) {
				return false
			}
		}
	}
}

// handleCommand executes cmd and reports whether the loop should continue.
func (m *Monitor) handleCommand(ctx context.Context, cmd command.Command) bool {
	reply := func(kind notify.StatusKind, text string) {
		m.notifier.ShowStatus(kind, text)
		if cmd.Reply != nil {
			cmd.Reply(text)
		}
	}

	switch cmd.Kind {
	case command.Stop:
		reply(notify.Warn, "stopping")
		return false
	case command.Status:
		reply(notify.Info, m.Status())
	case command.Clear:
		m.ClearNotified()
		m.ClearDisplayed()
		reply(notify.Warn, "notification history cleared")
	case command.Watch:
		// AddTarget and RemoveTarget print their own status lines.
		text := fmt.Sprintf("watching listing %d", cmd.ID)
		if err := m.AddTarget(ctx, cmd.ID); err != nil {
			text = fmt.Sprintf("failed to watch listing %d: %v", cmd.ID, err)
		}
		if cmd.Reply != nil {
			cmd.Reply(text)
		}
	case command.Unwatch:
		if !m.RemoveTarget(ctx, cmd.ID) {
			reply(notify.Warn, fmt.Sprintf("listing %d is not watched", cmd.ID))
		} else if cmd.Reply != nil {
			cmd.Reply(fmt.Sprintf("stopped watching listing %d", cmd.ID))
		}
	case command.Help:
		reply(notify.Info, command.HelpText)
	}
	return true
}

// Status summarizes the monitor state.
func (m *Monitor) Status() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycles: %d, notified: %d, watching: %d", m.cycles, len(m.notified), len(m.targets))
	if len(m.order) > 0 {
		ids := make([]string, 0, len(m.order))
		for _, id := range m.order {
			ids = append(ids, fmt.Sprint(id))
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(ids, ", "))
	}
	fmt.Fprintf(&b, ", interval: %s, expire after: %s", m.opts.CheckInterval, m.opts.ExpireThreshold)
	return b.String()
}

// ClearNotified forgets every notified listing id. Watched targets are kept.
func (m *Monitor) ClearNotified() {
	m.notified.clear()
}

// ClearDisplayed forgets the last displayed listing set.
func (m *Monitor) ClearDisplayed() {
	m.displayed = map[int64]struct{}{}
}

// Snapshot returns a copy of the last poll result.
func (m *Monitor) Snapshot() []model.Listing {
	return slices.Clone(m.snapshot)
}
