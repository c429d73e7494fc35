// Package types contains the read shapes returned by the ranking engine to
// transports (HTTP, CLI).
package types

// Result status values. Anything other than StatusOK is a labeled degradation.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFallback = "fallback"
)

// Prediction is one entity's outcome within its group.
type Prediction struct {
	EntityID       string             `json:"horse_name"`
	GroupID        string             `json:"race_id,omitempty"`
	FusedScore     float64            `json:"fused_score"`
	Rank           int                `json:"rank"`
	Confidence     float64            `json:"confidence"`
	Signal         string             `json:"signal"`
	Recommendation string             `json:"recommendation"`
	ConfidenceTier string             `json:"confidence_level"`
	ExpectedReturn string             `json:"expected_roi"`
	ModelScores    map[string]float64 `json:"model_scores,omitempty"`
	ModelsUsed     int                `json:"models_used"`
}

// GroupResult holds the ranked predictions of one race plus group-level metadata.
type GroupResult struct {
	GroupID               string       `json:"race_id"`
	Difficulty            string       `json:"race_difficulty"`
	OverallRecommendation string       `json:"overall_recommendation"`
	Predictions           []Prediction `json:"predictions"`
}

// Classification is one entity's outcome in the ungrouped predict mode.
type Classification struct {
	EntityID    string             `json:"horse_name"`
	GroupID     string             `json:"race_id,omitempty"`
	Probability float64            `json:"probability"`
	Prediction  int                `json:"prediction"`
	Confidence  float64            `json:"confidence"`
	ModelScores map[string]float64 `json:"model_scores,omitempty"`
	ModelsUsed  int                `json:"models_used"`
}

// EntityError annotates a single record that could not be processed. The rest
// of the batch is unaffected.
type EntityError struct {
	Index    int    `json:"index"`
	EntityID string `json:"horse_name,omitempty"`
	ModelID  string `json:"model,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// ModelFailure records a scorer excluded from a batch.
type ModelFailure struct {
	ModelID string `json:"model"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Degradation explains why a result is not StatusOK.
type Degradation struct {
	Reason         string         `json:"reason"`
	ExcludedModels []ModelFailure `json:"excluded_models,omitempty"`
}

// Diagnostics are batch-wide counters that never fail a request.
type Diagnostics struct {
	TemporalExcluded   int `json:"temporal_excluded"`
	HistoryUnavailable int `json:"history_unavailable"`
	DegenerateGroups   int `json:"degenerate_groups"`
}

// Result is the response of a ranking or classification batch.
type Result struct {
	BatchID         string           `json:"batch_id"`
	Status          string           `json:"status"`
	Mode            string           `json:"mode"`
	Strategy        string           `json:"fusion_strategy"`
	Threshold       float64          `json:"confidence_threshold"`
	Models          []string         `json:"models"`
	Groups          []GroupResult    `json:"groups,omitempty"`
	Classifications []Classification `json:"results,omitempty"`
	Errors          []EntityError    `json:"errors,omitempty"`
	Degradation     *Degradation     `json:"degradation,omitempty"`
	Diagnostics     Diagnostics      `json:"diagnostics"`
}

// Degraded reports whether the result carries anything other than real, complete scores.
func (r *Result) Degraded() bool {
	return r.Status != StatusOK
}

// RaceProbability is one leg of a streak.
type RaceProbability struct {
	RaceNumber     int     `json:"race_number"`
	EntityID       string  `json:"horse_name"`
	WinProbability float64 `json:"win_probability"`
}

// StreakResult is the composite probability of winning consecutive races.
type StreakResult struct {
	Model                   string            `json:"model"`
	Probability             float64           `json:"streak_probability"`
	Odds                    *float64          `json:"streak_odds"`
	IndividualProbabilities []float64         `json:"individual_probabilities"`
	Detail                  []RaceProbability `json:"predictions_detail"`
	Interpretation          string            `json:"interpretation"`
}

// ModelInfo describes a registered scorer.
type ModelInfo struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Format       string   `json:"format"`
	FeatureCount int      `json:"feature_count"`
	Features     []string `json:"features"`
	Weight       float64  `json:"weight"`
	Entitled     bool     `json:"entitled"`
}

// ModelCatalog is the registry view for one tier.
type ModelCatalog struct {
	Version string      `json:"version"`
	Tier    string      `json:"tier"`
	Models  []ModelInfo `json:"models"`
}

// BatchOptions are the per-request knobs of a rank or predict call.
type BatchOptions struct {
	// Threshold overrides the default confidence threshold when positive.
	Threshold float64
	// Impute fills missing weight, age, track condition, jockey and trainer
	// from the rest of the batch before derivation.
	Impute bool
}
