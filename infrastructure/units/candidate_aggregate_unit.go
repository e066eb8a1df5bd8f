package units

import (
	"context"
	"fmt"
	"math"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var (
	_ ports.Unit        = (*CandidateAggregateUnit)(nil)
	_ domain.Aggregator = (*CandidateAggregateUnit)(nil)
)

// CandidateAggregateUnit summarises candidate records per reference
// accession: the number of reporting rows and the mean ANI, conserved DNA
// and Mash distance.
//
// The unit is stateless and thread-safe.
type CandidateAggregateUnit struct {
	name   string
	config CandidateAggregateConfig
}

// CandidateAggregateConfig defines the configuration parameters for the
// CandidateAggregateUnit.
type CandidateAggregateConfig struct {
	// MinANI drops rows below this identity before aggregation. Zero keeps
	// every row.
	MinANI float64 `yaml:"min_ani" json:"min_ani" validate:"min=0,max=100"`
}

// NewCandidateAggregateUnit creates a new CandidateAggregateUnit.
func NewCandidateAggregateUnit(name string, config CandidateAggregateConfig) (*CandidateAggregateUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &CandidateAggregateUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *CandidateAggregateUnit) Name() string { return u.name }

// Execute reads domain.KeyCandidateRecords and stores the summaries under
// domain.KeyCandidateSummaries.
func (u *CandidateAggregateUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	records, err := domain.MustGet(state, domain.KeyCandidateRecords)
	if err != nil {
		return state, err
	}

	summaries, err := u.Aggregate(records)
	if err != nil {
		return state, fmt.Errorf("aggregation failed: %w", err)
	}
	return domain.With(state, domain.KeyCandidateSummaries, summaries), nil
}

// Aggregate implements the domain.Aggregator interface.
func (u *CandidateAggregateUnit) Aggregate(records []domain.CandidateRecord) ([]domain.CandidateSummary, error) {
	kept := make([]domain.CandidateRecord, 0, len(records))
	for i, r := range records {
		for _, v := range []float64{r.ANI, r.ConservedDNA, r.MashDistance} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: record %d (candidate %s, sample %s): non-finite value %v",
					domain.ErrMalformedRow, i, r.CandidateID, r.Sample, v)
			}
		}
		if r.ANI < u.config.MinANI {
			continue
		}
		kept = append(kept, r)
	}
	return domain.AggregateCandidates(kept), nil
}

// Validate checks if the unit is properly configured.
func (u *CandidateAggregateUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DefaultCandidateAggregateConfig returns a CandidateAggregateConfig that
// keeps every row.
func DefaultCandidateAggregateConfig() CandidateAggregateConfig {
	return CandidateAggregateConfig{MinANI: 0}
}

// CreateCandidateAggregateUnit is a factory function that creates a
// CandidateAggregateUnit from a configuration map, for use with the
// UnitRegistry.
func CreateCandidateAggregateUnit(id string, config map[string]any) (*CandidateAggregateUnit, error) {
	cfg := DefaultCandidateAggregateConfig()
	v, ok, err := floatParam(config, "min_ani")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.MinANI = v
	}
	return NewCandidateAggregateUnit(id, cfg)
}
