package plan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAddPOI_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		plan  Plan
		count int
		want  bool
	}{
		{name: "free below limit", plan: Free, count: 0, want: true},
		{name: "free one before limit", plan: Free, count: 99, want: true},
		{name: "free at limit", plan: Free, count: 100, want: false},
		{name: "free above limit", plan: Free, count: 150, want: false},
		{name: "premium one before limit", plan: Premium, count: 399, want: true},
		{name: "premium at limit", plan: Premium, count: 400, want: false},
		{name: "unlimited huge count", plan: Unlimited, count: 1_000_000_000, want: true},
		{name: "unknown plan blocks everything", plan: Plan("enterprise"), count: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAddPOI(tt.plan, tt.count))
		})
	}
}

func TestCanCreateCategory_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		plan  Plan
		count int
		want  bool
	}{
		{name: "free one before limit", plan: Free, count: 9, want: true},
		{name: "free at limit", plan: Free, count: 10, want: false},
		{name: "premium below limit", plan: Premium, count: 19, want: true},
		{name: "premium at limit", plan: Premium, count: 20, want: false},
		{name: "unlimited never blocks", plan: Unlimited, count: 1_000_000_000, want: true},
		{name: "unknown plan blocks", plan: Plan(""), count: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanCreateCategory(tt.plan, tt.count))
		})
	}
}

func TestCanAddPOIToCategory_Boundaries(t *testing.T) {
	assert.True(t, CanAddPOIToCategory(Free, 9))
	assert.False(t, CanAddPOIToCategory(Free, 10))
	assert.True(t, CanAddPOIToCategory(Premium, 19))
	assert.False(t, CanAddPOIToCategory(Premium, 20))
	assert.True(t, CanAddPOIToCategory(Unlimited, 1_000_000_000))
}

func TestRemaining_NeverNegative(t *testing.T) {
	limits := LimitsFor(Free)

	assert.Equal(t, 0.0, Remaining(limits.TotalPOILimit, 100))
	assert.Equal(t, 0.0, Remaining(limits.TotalPOILimit, 250))
	assert.Equal(t, 1.0, Remaining(limits.TotalPOILimit, 99))
	assert.True(t, math.IsInf(Remaining(LimitsFor(Unlimited).TotalPOILimit, 12345), 1))
}

func TestAllowsCustomIcons(t *testing.T) {
	assert.False(t, AllowsCustomIcons(Free))
	assert.False(t, AllowsCustomIcons(Premium))
	assert.True(t, AllowsCustomIcons(Unlimited))
	assert.False(t, AllowsCustomIcons(Plan("trial")))
}
