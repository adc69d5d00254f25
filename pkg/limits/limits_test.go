package limits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
)

func testPlan() limits.Plan {
	return limits.Plan{
		ID: "free",
		Limits: map[limits.Feature]int64{
			limits.FeatureStatisticsAccess: 5,
			limits.FeatureTranscriptions:   10,
			limits.FeatureTrackedPeople:    limits.Unlimited,
		},
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		feature limits.Feature
		current int64
		allowed bool
		limit   int64
	}{
		{"under limit", limits.FeatureStatisticsAccess, 4, true, 5},
		{"at limit denied", limits.FeatureStatisticsAccess, 5, false, 5},
		{"over limit denied", limits.FeatureStatisticsAccess, 6, false, 5},
		{"zero usage", limits.FeatureTranscriptions, 0, true, 10},
		{"unlimited always allowed", limits.FeatureTrackedPeople, 1_000_000, true, limits.Unlimited},
		{"unknown feature fails closed", limits.Feature("export"), 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := limits.Check(testPlan(), tt.feature, tt.current)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.limit, d.Limit)
			assert.Equal(t, tt.current, d.Current)
		})
	}
}

func TestCheckIsPure(t *testing.T) {
	t.Parallel()

	plan := testPlan()
	before := plan.Limits[limits.FeatureStatisticsAccess]

	_ = limits.Check(plan, limits.FeatureStatisticsAccess, 3)
	_ = limits.Check(plan, limits.FeatureStatisticsAccess, 3)

	assert.Equal(t, before, plan.Limits[limits.FeatureStatisticsAccess])
}

func TestValidFeature(t *testing.T) {
	t.Parallel()

	assert.True(t, limits.ValidFeature(limits.FeatureStatisticsAccess))
	assert.True(t, limits.ValidFeature(limits.FeatureTranscriptions))
	assert.True(t, limits.ValidFeature(limits.FeatureTrackedPeople))
	assert.False(t, limits.ValidFeature(limits.Feature("export")))
}
