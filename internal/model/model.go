// Package model defines the domain types used across the application.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Slot is a single party slot as reported by the detail endpoint.
type Slot struct {
	Filled bool   `json:"filled"`
	Role   string `json:"role"`
	Job    string `json:"job"`
}

// Listing is a party-recruitment post. Fields after IsCrossWorld are only
// populated by the detail endpoint.
type Listing struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedWorld   string    `json:"created_world"`
	HomeWorld      string    `json:"home_world"`
	Category       string    `json:"category"`
	Duty           string    `json:"duty"`
	MinItemLevel   int       `json:"min_item_level"`
	SlotsFilled    int       `json:"slots_filled"`
	SlotsAvailable int       `json:"slots_available"`
	TimeLeft       float64   `json:"time_left"`
	UpdatedAt      Timestamp `json:"updated_at"`
	IsCrossWorld   bool      `json:"is_cross_world"`
	Datacenter     string    `json:"datacenter"`

	BeginnersWelcome *bool  `json:"beginners_welcome,omitempty"`
	DutyType         string `json:"duty_type,omitempty"`
	Objective        string `json:"objective,omitempty"`
	Conditions       string `json:"conditions,omitempty"`
	LootRules        string `json:"loot_rules,omitempty"`
	Slots            []Slot `json:"slots,omitempty"`
}

// Remaining returns the listing's remaining time.
func (l Listing) Remaining() time.Duration {
	return time.Duration(l.TimeLeft * float64(time.Second))
}

// Pagination describes one page of the listings collection.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// FilterCondition selects listings. The first group is sent to the server as
// query parameters, the second is evaluated locally against detail records.
type FilterCondition struct {
	Category   string `json:"category,omitempty" yaml:"category,omitempty"`
	World      string `json:"world,omitempty" yaml:"world,omitempty"`
	Datacenter string `json:"datacenter,omitempty" yaml:"datacenter,omitempty"`
	Search     string `json:"search,omitempty" yaml:"search,omitempty"`
	Jobs       []int  `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	Duties     []int  `json:"duty,omitempty" yaml:"duty,omitempty"`

	ExcludeJobs       []int  `json:"exclude_jobs,omitempty" yaml:"exclude_jobs,omitempty"`
	MinSlotsAvailable *int   `json:"min_slots_available,omitempty" yaml:"min_slots_available,omitempty"`
	MaxSlotsFilled    *int   `json:"max_slots_filled,omitempty" yaml:"max_slots_filled,omitempty"`
	BeginnersWelcome  *bool  `json:"beginners_welcome,omitempty" yaml:"beginners_welcome,omitempty"`
	Keywords          string `json:"content_keywords,omitempty" yaml:"content_keywords,omitempty"`
}

// HasDetailStage reports whether any detail-level field is set.
func (c FilterCondition) HasDetailStage() bool {
	return len(c.ExcludeJobs) > 0 ||
		c.MinSlotsAvailable != nil ||
		c.MaxSlotsFilled != nil ||
		c.BeginnersWelcome != nil ||
		strings.TrimSpace(c.Keywords) != ""
}

// FilterDef is a named filter condition as stored by the operator.
type FilterDef struct {
	ID        int64
	Name      string
	Condition FilterCondition
	Enabled   bool
	CreatedAt time.Time
}

// Target is a listing under explicit continuous tracking.
type Target struct {
	ListingID  int64
	LastUpdate time.Time
	Staleness  time.Duration
}

// Timestamp is a UTC instant decoded from the API. Values without a zone
// designator are interpreted as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
