package units

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var (
	_ ports.Unit    = (*CandidateRankUnit)(nil)
	_ domain.Ranker = (*CandidateRankUnit)(nil)
)

// CandidateRankUnit orders candidate summaries and selects the best
// reference. Ordering is by reporting sample count, then mean ANI, then
// mean conserved DNA, all descending, then mean Mash distance ascending,
// then accession.
type CandidateRankUnit struct {
	name    string
	config  CandidateRankConfig
	metrics ports.MetricsCollector
}

// CandidateRankConfig defines the configuration parameters for the
// CandidateRankUnit.
type CandidateRankConfig struct {
	// MaxCandidates truncates the ranked table. Zero keeps all rows.
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates" validate:"min=0"`
}

// NewCandidateRankUnit creates a new CandidateRankUnit.
func NewCandidateRankUnit(name string, config CandidateRankConfig, metrics ports.MetricsCollector) (*CandidateRankUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &CandidateRankUnit{name: name, config: config, metrics: metrics}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *CandidateRankUnit) Name() string { return u.name }

// Execute ranks domain.KeyCandidateSummaries, storing the table under
// domain.KeyRanking and the winner under domain.KeyBestCandidate.
func (u *CandidateRankUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	summaries, err := domain.MustGet(state, domain.KeyCandidateSummaries)
	if err != nil {
		return state, err
	}

	ranking, err := u.Rank(summaries)
	if err != nil {
		var nc *domain.NoCandidatesError
		if errors.As(err, &nc) {
			files, _ := domain.Get(state, domain.KeyResultFiles)
			nc.Samples = len(files)
		}
		return state, err
	}

	if u.metrics != nil {
		u.metrics.RecordGauge(ports.MetricCandidates, float64(len(summaries)),
			map[string]string{"unit": u.name})
	}

	return state.WithMultiple(map[string]any{
		domain.KeyRanking.Name():       ranking,
		domain.KeyBestCandidate.Name(): ranking.Best,
	}), nil
}

// Rank implements the domain.Ranker interface.
func (u *CandidateRankUnit) Rank(summaries []domain.CandidateSummary) (*domain.Ranking, error) {
	ranking, err := domain.RankCandidates(summaries)
	if err != nil {
		return nil, err
	}
	if u.config.MaxCandidates > 0 && len(ranking.Candidates) > u.config.MaxCandidates {
		ranking.Candidates = ranking.Candidates[:u.config.MaxCandidates]
	}
	return ranking, nil
}

// Validate checks if the unit is properly configured.
func (u *CandidateRankUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DefaultCandidateRankConfig returns a CandidateRankConfig keeping every
// candidate.
func DefaultCandidateRankConfig() CandidateRankConfig {
	return CandidateRankConfig{MaxCandidates: 0}
}

// CreateCandidateRankUnit is a factory function that creates a
// CandidateRankUnit from a configuration map, for use with the UnitRegistry.
func CreateCandidateRankUnit(id string, config map[string]any) (*CandidateRankUnit, error) {
	cfg := DefaultCandidateRankConfig()
	n, ok, err := intParam(config, "max_candidates")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.MaxCandidates = n
	}
	return NewCandidateRankUnit(id, cfg, metricsFrom(config))
}
