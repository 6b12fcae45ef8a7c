package bot

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"pfwatch/internal/model"
)

func TestFormatFilterList(t *testing.T) {
	one := 1
	yes := true

	tests := []struct {
		name    string
		filters []model.FilterDef
		want    string
	}{
		{
			name: "empty",
			want: "No filters stored.",
		},
		{
			name: "query and detail conditions",
			filters: []model.FilterDef{
				{Name: "高难度副本-莫古力", Enabled: true, Condition: model.FilterCondition{
					Category: "HighEndDuty", Datacenter: "莫古力",
				}},
				{Name: "需要坦克的队伍", Enabled: false, Condition: model.FilterCondition{
					ExcludeJobs: []int{19, 21}, MinSlotsAvailable: &one, BeginnersWelcome: &yes,
				}},
				{Name: "any", Enabled: true},
			},
			want: "Filters:\n" +
				"\n✓ 高难度副本-莫古力\n   category=HighEndDuty, dc=莫古力" +
				"\n✗ 需要坦克的队伍\n   exclude=[19 21], min_free=1, beginners=true" +
				"\n✓ any",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatFilterList(tt.filters)); diff != "" {
				t.Errorf("FormatFilterList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDescribeCondition(t *testing.T) {
	maxFilled := 6
	c := model.FilterCondition{
		World:          "拉诺西亚",
		Search:         "零式",
		Jobs:           []int{24},
		Duties:         []int{1010},
		MaxSlotsFilled: &maxFilled,
		Keywords:       "  速通 速刷 ",
	}
	want := "world=拉诺西亚, search=零式, jobs=[24], duty=[1010], max_filled=6, keywords=速通 速刷"
	if diff := cmp.Diff(want, describeCondition(c)); diff != "" {
		t.Errorf("describeCondition() mismatch (-want +got):\n%s", diff)
	}
}
