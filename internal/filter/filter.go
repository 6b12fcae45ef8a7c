// Package filter implements the two-stage listing filter: query parameters
// the server understands, and local predicates over detail records.
package filter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pfwatch/internal/jobs"
	"pfwatch/internal/model"
)

// DetailFetcher resolves a listing id to its detail record.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id int64) (*model.Listing, error)
}

// QueryParams returns the request parameters for the query-level part of
// cond. Unset fields are omitted, which the server treats as unfiltered.
func QueryParams(cond model.FilterCondition) url.Values {
	v := url.Values{}
	setIfNotEmpty(v, "category", cond.Category)
	setIfNotEmpty(v, "world", cond.World)
	setIfNotEmpty(v, "datacenter", cond.Datacenter)
	setIfNotEmpty(v, "search", cond.Search)
	if len(cond.Jobs) > 0 {
		v.Set("jobs", joinInts(cond.Jobs))
	}
	if len(cond.Duties) > 0 {
		v.Set("duty", joinInts(cond.Duties))
	}
	return v
}

func setIfNotEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Compiled is a FilterCondition with its free-text fields normalized.
type Compiled struct {
	Condition model.FilterCondition

	detail   bool
	excluded map[int]struct{}
	keywords []string
}

// Compile normalizes cond once: keywords are trimmed, lower-cased and split
// on whitespace; excluded job ids become a set.
func Compile(cond model.FilterCondition) Compiled {
	c := Compiled{Condition: cond, detail: cond.HasDetailStage()}
	if len(cond.ExcludeJobs) > 0 {
		c.excluded = make(map[int]struct{}, len(cond.ExcludeJobs))
		for _, id := range cond.ExcludeJobs {
			c.excluded[id] = struct{}{}
		}
	}
	c.keywords = strings.Fields(strings.ToLower(cond.Keywords))
	return c
}

// Keywords returns the normalized keyword set.
func (c Compiled) Keywords() []string { return c.keywords }

// Pipeline evaluates the detail stage, fetching detail records on demand.
type Pipeline struct {
	details DetailFetcher
	jobs    *jobs.Table
}

// New creates a Pipeline.
func New(details DetailFetcher, table *jobs.Table) *Pipeline {
	return &Pipeline{details: details, jobs: table}
}

// Match reports whether l passes the detail stage of c. It returns true
// without any request when c has no detail-level field. A listing that no
// longer resolves fails closed.
func (p *Pipeline) Match(ctx context.Context, l model.Listing, c Compiled) (bool, error) {
	if !c.detail {
		return true, nil
	}
	detail, err := p.details.FetchDetail(ctx, l.ID)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("detail for listing %d: %w", l.ID, err)
	}
	return MatchDetail(*detail, c, p.jobs), nil
}

// Apply returns the listings that pass cond. A listing whose detail fetch
// fails is dropped and its error collected; the rest are still evaluated.
func (p *Pipeline) Apply(ctx context.Context, listings []model.Listing, cond model.FilterCondition) ([]model.Listing, []error) {
	c := Compile(cond)
	var (
		matched []model.Listing
		errs    []error
	)
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return matched, append(errs, err)
		}
		ok, err := p.Match(ctx, l, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			matched = append(matched, l)
		}
	}
	return matched, errs
}

// MatchDetail evaluates the detail-level predicates against a detail
// record. Checks are AND-combined and stop at the first failure.
func MatchDetail(d model.Listing, c Compiled, table *jobs.Table) bool {
	cond := c.Condition

	if len(c.excluded) > 0 && hasExcludedJob(d.Slots, c.excluded, table) {
		return false
	}
	if cond.MinSlotsAvailable != nil && d.SlotsAvailable < *cond.MinSlotsAvailable {
		return false
	}
	if cond.MaxSlotsFilled != nil && d.SlotsFilled > *cond.MaxSlotsFilled {
		return false
	}
	if cond.BeginnersWelcome != nil {
		if d.BeginnersWelcome == nil || *d.BeginnersWelcome != *cond.BeginnersWelcome {
			return false
		}
	}
	if len(c.keywords) > 0 && !containsAny(strings.ToLower(d.Description), c.keywords) {
		return false
	}
	return true
}

func hasExcludedJob(slots []model.Slot, excluded map[int]struct{}, table *jobs.Table) bool {
	for _, s := range slots {
		if !s.Filled || s.Job == "" {
			continue
		}
		for _, id := range table.IDsFromCodes(jobs.CodesFromString(s.Job)) {
			if _, ok := excluded[id]; ok {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
