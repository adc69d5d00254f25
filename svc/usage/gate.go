package usage

import (
	"context"
	"errors"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
)

// ErrUnknownFeature is returned when a feature string outside the closed set
// reaches the gate.
var ErrUnknownFeature = errors.New("usage.errors.unknown_feature")

// PlanResolver yields the plan that currently governs a user's access.
// *subscription.Service satisfies it.
type PlanResolver interface {
	EffectivePlan(ctx context.Context, uid string) (subscription.PlanType, error)
	Catalog() *subscription.Catalog
}

// Gate combines the effective plan, the plan catalog and the monthly
// counters into a single admission decision.
type Gate struct {
	plans PlanResolver
	usage *Service
}

// NewGate creates a gate. Panics if either dependency is nil.
func NewGate(plans PlanResolver, usage *Service) *Gate {
	if plans == nil {
		panic("usage: PlanResolver is required")
	}
	if usage == nil {
		panic("usage: Service is required")
	}
	return &Gate{plans: plans, usage: usage}
}

// Allow answers whether uid may use the feature right now, without consuming
// a unit. The decision is based on the effective plan, so an expired paid
// subscription is gated at free limits even before any sweep runs.
func (g *Gate) Allow(ctx context.Context, uid string, f limits.Feature) (limits.Decision, error) {
	if !limits.ValidFeature(f) {
		return limits.Decision{}, ErrUnknownFeature
	}

	plan, err := g.plans.EffectivePlan(ctx, uid)
	if err != nil {
		return limits.Decision{}, err
	}
	table, err := g.plans.Catalog().LimitsPlan(plan)
	if err != nil {
		return limits.Decision{}, err
	}
	current, err := g.usage.Count(ctx, uid, f)
	if err != nil {
		return limits.Decision{}, err
	}
	return limits.Check(table, f, current), nil
}

// AllowCount answers a gate question for features whose usage is counted
// outside the monthly store, e.g. tracked people, where current is the
// caller-supplied live count.
func (g *Gate) AllowCount(ctx context.Context, uid string, f limits.Feature, current int64) (limits.Decision, error) {
	if !limits.ValidFeature(f) {
		return limits.Decision{}, ErrUnknownFeature
	}

	plan, err := g.plans.EffectivePlan(ctx, uid)
	if err != nil {
		return limits.Decision{}, err
	}
	table, err := g.plans.Catalog().LimitsPlan(plan)
	if err != nil {
		return limits.Decision{}, err
	}
	return limits.Check(table, f, current), nil
}

// Consume grants and records one use of the feature. The increment happens
// only after the grant; a denied decision never moves a counter. The check
// and the increment are not one atomic step, so concurrent calls can
// overshoot the limit by a small bounded amount, which is acceptable for
// soft monthly quotas.
func (g *Gate) Consume(ctx context.Context, uid string, f limits.Feature) (limits.Decision, error) {
	decision, err := g.Allow(ctx, uid, f)
	if err != nil || !decision.Allowed {
		return decision, err
	}
	if err := g.usage.Increment(ctx, uid, f); err != nil {
		return decision, err
	}
	decision.Current++
	return decision, nil
}
