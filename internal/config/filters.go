package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pfwatch/internal/model"
)

// FilterFile is the YAML filter preset file.
//
//	filters:
//	  - name: high-end
//	    condition:
//	      category: HighEndDuty
//	      datacenter: 莫古力
//	targets: [123456]
type FilterFile struct {
	Filters []FilterEntry `yaml:"filters"`
	Targets []int64       `yaml:"targets"`
}

// FilterEntry is one named filter. Enabled defaults to true.
type FilterEntry struct {
	Name      string                `yaml:"name"`
	Enabled   *bool                 `yaml:"enabled,omitempty"`
	Condition model.FilterCondition `yaml:"condition"`
}

// LoadFilterFile reads and validates a filter preset file.
func LoadFilterFile(path string) (*FilterFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read filter file: %w", err)
	}
	f, err := ParseFilterFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseFilterFile decodes a filter preset document. Unknown keys are
// rejected.
func ParseFilterFile(data []byte) (*FilterFile, error) {
	var f FilterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse filter file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Filters))
	for i, e := range f.Filters {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("filter #%d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate filter name %q", name)
		}
		seen[name] = struct{}{}
		f.Filters[i].Name = name
	}
	for _, id := range f.Targets {
		if id <= 0 {
			return nil, fmt.Errorf("invalid target id %d", id)
		}
	}
	return &f, nil
}

// Defs converts the file entries to filter definitions.
func (f *FilterFile) Defs() []model.FilterDef {
	defs := make([]model.FilterDef, 0, len(f.Filters))
	for _, e := range f.Filters {
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		defs = append(defs, model.FilterDef{Name: e.Name, Enabled: enabled, Condition: e.Condition})
	}
	return defs
}

// DefaultPresets returns the built-in filter list used when no filters are
// stored yet.
func DefaultPresets() []model.FilterDef {
	one, two := 1, 2
	return []model.FilterDef{
		{Name: "高难度副本-莫古力", Enabled: true, Condition: model.FilterCondition{
			Category: "HighEndDuty", Datacenter: "莫古力",
		}},
		{Name: "极神挑战", Enabled: true, Condition: model.FilterCondition{
			Search: "极", MinSlotsAvailable: &one,
		}},
		{Name: "零式团队", Enabled: true, Condition: model.FilterCondition{
			Search: "零式", MinSlotsAvailable: &two,
		}},
		// parties without a PLD, WAR, DRK or GNB yet
		{Name: "需要坦克的队伍", Enabled: true, Condition: model.FilterCondition{
			ExcludeJobs: []int{19, 21, 32, 37}, MinSlotsAvailable: &one,
		}},
		// parties without a WHM, SCH, AST or SGE yet
		{Name: "需要治疗的队伍", Enabled: true, Condition: model.FilterCondition{
			ExcludeJobs: []int{24, 28, 33, 40}, MinSlotsAvailable: &one,
		}},
		{Name: "速通团队", Enabled: true, Condition: model.FilterCondition{
			Keywords: "速通 速刷 刷子", MinSlotsAvailable: &one,
		}},
		{Name: "练习向团队", Enabled: true, Condition: model.FilterCondition{
			Keywords: "练习 新手 萌新 学习", MinSlotsAvailable: &one,
		}},
		{Name: "固定队招募", Enabled: true, Condition: model.FilterCondition{
			Keywords: "固定 固定队 长期 招固定", MinSlotsAvailable: &one,
		}},
	}
}
