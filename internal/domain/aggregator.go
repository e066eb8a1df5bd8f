package domain

// Aggregator defines the interface for combining per-sample candidate rows
// into per-candidate summaries.
// Implementations must not fill in candidates a sample did not report.
type Aggregator interface {
	// Aggregate groups records by candidate id.
	//
	// Example:
	//
	//	summaries, err := aggregator.Aggregate(records)
	Aggregate(records []CandidateRecord) ([]CandidateSummary, error)
}

// Ranker orders candidate summaries and selects the winner.
type Ranker interface {
	// Rank returns the ordered table; the best candidate is its first row.
	// An empty input must fail with a *NoCandidatesError.
	Rank(summaries []CandidateSummary) (*Ranking, error)
}
