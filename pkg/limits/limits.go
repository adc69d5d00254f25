// Package limits implements the plan gate: a side-effect free table lookup
// deciding whether a feature action is allowed given the plan's numeric limit
// and the current usage. Callers persist any resulting counter increment.
package limits

// Feature is a gated, countable capability. The set is closed; feature
// strings arriving at the system boundary must be validated against it
// before reaching this package.
type Feature string

const (
	FeatureStatisticsAccess Feature = "statistics_access" // statistics views opened per month
	FeatureTranscriptions   Feature = "transcriptions"    // voice notes transcribed per month
	FeatureTrackedPeople    Feature = "tracked_people"    // people tracked across the journal
)

// ValidFeature reports whether f belongs to the closed feature set.
func ValidFeature(f Feature) bool {
	switch f {
	case FeatureStatisticsAccess, FeatureTranscriptions, FeatureTrackedPeople:
		return true
	}
	return false
}

// Unlimited indicates no limit for a feature (-1 keeps numeric comparisons simple).
const Unlimited int64 = -1

// Plan describes the limit table for one subscription tier.
type Plan struct {
	ID     string            `yaml:"id"`
	Limits map[Feature]int64 `yaml:"limits"`
}

// Decision is the gate outcome, carrying the numbers the caller needs for
// quota responses.
type Decision struct {
	Allowed bool  `json:"allowed"`
	Limit   int64 `json:"limit"`
	Current int64 `json:"current"`
}

// Check is a pure function of (plan, feature, currentUsage). A feature absent
// from the plan's table is denied with a zero limit, failing closed.
func Check(plan Plan, f Feature, current int64) Decision {
	limit, exists := plan.Limits[f]
	if !exists {
		return Decision{Allowed: false, Limit: 0, Current: current}
	}
	if limit == Unlimited {
		return Decision{Allowed: true, Limit: Unlimited, Current: current}
	}
	return Decision{Allowed: current < limit, Limit: limit, Current: current}
}
