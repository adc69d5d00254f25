package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
)

// PlanSpec describes one tier in the plan catalog: its billing-provider price
// identifiers and the limit table the usage gate checks against.
type PlanSpec struct {
	Type          PlanType                 `yaml:"type"`
	StripePriceID string                   `yaml:"stripePriceId"`
	PaddlePriceID string                   `yaml:"paddlePriceId"`
	Limits        map[limits.Feature]int64 `yaml:"limits"`
}

// Catalog is the static plan->limits mapping. It is loaded once at startup
// and treated as immutable afterwards.
type Catalog struct {
	plans map[PlanType]PlanSpec
}

// CatalogSource defines how plan specs are loaded into the catalog.
type CatalogSource interface {
	Load(ctx context.Context) ([]PlanSpec, error)
}

// NewCatalog builds a catalog from plan specs, validating that every tier of
// the closed plan set is present exactly once.
func NewCatalog(specs ...PlanSpec) (*Catalog, error) {
	plans := make(map[PlanType]PlanSpec, len(specs))
	for _, spec := range specs {
		if !spec.Type.Valid() {
			return nil, errors.Join(ErrInvalidCatalog,
				fmt.Errorf("unknown plan type %q", spec.Type))
		}
		if _, dup := plans[spec.Type]; dup {
			return nil, errors.Join(ErrInvalidCatalog,
				fmt.Errorf("duplicate plan type %q", spec.Type))
		}
		plans[spec.Type] = spec
	}

	for _, required := range []PlanType{PlanFree, PlanBasic, PlanPro, PlanElite} {
		if _, ok := plans[required]; !ok {
			return nil, errors.Join(ErrInvalidCatalog,
				fmt.Errorf("missing plan type %q", required))
		}
	}

	return &Catalog{plans: plans}, nil
}

// NewCatalogFromSource loads plan specs from the given source.
func NewCatalogFromSource(ctx context.Context, src CatalogSource) (*Catalog, error) {
	specs, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	return NewCatalog(specs...)
}

// Get returns the spec for a plan type.
func (c *Catalog) Get(p PlanType) (PlanSpec, error) {
	spec, ok := c.plans[p]
	if !ok {
		return PlanSpec{}, ErrPlanNotInCatalog
	}
	return spec, nil
}

// LimitsPlan adapts a catalog entry to the usage gate's plan table.
func (c *Catalog) LimitsPlan(p PlanType) (limits.Plan, error) {
	spec, err := c.Get(p)
	if err != nil {
		return limits.Plan{}, err
	}
	return limits.Plan{ID: string(spec.Type), Limits: spec.Limits}, nil
}

// DefaultCatalog returns the built-in plan catalog. Price IDs are empty and
// must come from configuration (YAML source) in deployments that sell plans.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		PlanSpec{
			Type: PlanFree,
			Limits: map[limits.Feature]int64{
				limits.FeatureStatisticsAccess: 5,
				limits.FeatureTranscriptions:   3,
				limits.FeatureTrackedPeople:    5,
			},
		},
		PlanSpec{
			Type: PlanBasic,
			Limits: map[limits.Feature]int64{
				limits.FeatureStatisticsAccess: 30,
				limits.FeatureTranscriptions:   15,
				limits.FeatureTrackedPeople:    25,
			},
		},
		PlanSpec{
			Type: PlanPro,
			Limits: map[limits.Feature]int64{
				limits.FeatureStatisticsAccess: 100,
				limits.FeatureTranscriptions:   60,
				limits.FeatureTrackedPeople:    limits.Unlimited,
			},
		},
		PlanSpec{
			Type: PlanElite,
			Limits: map[limits.Feature]int64{
				limits.FeatureStatisticsAccess: limits.Unlimited,
				limits.FeatureTranscriptions:   limits.Unlimited,
				limits.FeatureTrackedPeople:    limits.Unlimited,
			},
		},
	)
	if err != nil {
		panic(err) // built-in catalog is statically correct
	}
	return catalog
}
