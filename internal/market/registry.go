// Package market holds the market-spec registry, the shared scoring
// engine helpers every model composes from, and the eleven market
// models themselves in internal/market/models.
package market

import (
	"fmt"
	"sync"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/features"
)

// EntityType names what a market scores against.
type EntityType string

const (
	EntityBatter  EntityType = "batter"
	EntityPitcher EntityType = "pitcher"
	EntityTeam    EntityType = "team"
	EntityGame    EntityType = "game"
)

// OutputType classifies what a model's composite score represents.
type OutputType string

const (
	OutputProbability OutputType = "probability"
	OutputProjection  OutputType = "projection"
	OutputHybrid      OutputType = "hybrid"
)

// EdgeMethod names how edge is computed from a model's output.
type EdgeMethod string

const (
	EdgeProbVsImplied      EdgeMethod = "prob_vs_implied"
	EdgeProjectionVsLine   EdgeMethod = "projection_vs_line"
	EdgeHybrid             EdgeMethod = "hybrid"
)

// LineupRequirement tells the scoring population builder how to treat
// an unconfirmed lineup.
type LineupRequirement string

const (
	LineupRequired    LineupRequirement = "required"
	LineupRecommended LineupRequirement = "recommended"
	LineupNotRequired LineupRequirement = "not_required"
)

// MissingDataPolicy names how a model reacts to an absent required
// input.
type MissingDataPolicy string

const (
	PolicyDegradeConfidence MissingDataPolicy = "degrade_confidence"
	PolicySkip              MissingDataPolicy = "skip"
	PolicyStoreWithRiskFlags MissingDataPolicy = "store_with_risk_flags"
)

// Thresholds is one signal tier's score/edge cutoffs.
type Thresholds struct {
	MinScore float64
	MinEdge  float64
	MaxScore float64
	MaxEdge  float64
}

// ThresholdFamily is the named preset a MarketSpec draws its
// per-signal Thresholds from.
type ThresholdFamily string

const (
	FamilyDefault     ThresholdFamily = "DEFAULT"
	FamilyConservative ThresholdFamily = "CONSERVATIVE"
	FamilyAggressive  ThresholdFamily = "AGGRESSIVE"
)

// presetThresholds is the §2 source-conventions table: BET/LEAN/FADE
// cutoffs per threshold family, shared by every market that selects
// that family.
var presetThresholds = map[ThresholdFamily]map[core.Signal]Thresholds{
	FamilyDefault: {
		core.SignalBet:  {MinScore: 75, MinEdge: 5.0},
		core.SignalLean: {MinScore: 65, MinEdge: 2.5},
		core.SignalFade: {MaxScore: 35, MaxEdge: -3},
	},
	FamilyConservative: {
		core.SignalBet:  {MinScore: 83, MinEdge: 7.0},
		core.SignalLean: {MinScore: 71, MinEdge: 3.5},
		core.SignalFade: {MaxScore: 27, MaxEdge: -5},
	},
	FamilyAggressive: {
		core.SignalBet:  {MinScore: 67, MinEdge: 3.0},
		core.SignalLean: {MinScore: 59, MinEdge: 1.5},
		core.SignalFade: {MaxScore: 43, MaxEdge: -1},
	},
}

// ThresholdsFor resolves a family's threshold table.
func ThresholdsFor(family ThresholdFamily) map[core.Signal]Thresholds {
	return presetThresholds[family]
}

// Spec is an immutable market definition held by the Registry.
type Spec struct {
	Market                core.Market
	DisplayName           string
	EntityType            EntityType
	RequiredFeatureTables []string
	OutputType            OutputType
	EdgeMethod            EdgeMethod
	ThresholdFamily       ThresholdFamily
	LineupRequirement     LineupRequirement
	MissingDataPolicy     MissingDataPolicy
	WeatherRecommended    bool
	MinimumSampleSize     int
	SupportsF5            bool
}

// Registry is a mutex-guarded, append-mostly table of market specs.
// Specs are registered once at startup and read concurrently by every
// scoring goroutine thereafter.
type Registry struct {
	mu    sync.RWMutex
	specs map[core.Market]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[core.Market]Spec)}
}

func (r *Registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Market] = spec
}

func (r *Registry) Get(m core.Market) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[m]
	if !ok {
		return Spec{}, fmt.Errorf("market %s not registered", m)
	}
	return spec, nil
}

func (r *Registry) All() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	return out
}

// DefaultRegistry builds the registry pre-populated with all eleven
// markets' specs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, spec := range defaultSpecs {
		r.Register(spec)
	}
	return r
}

var defaultSpecs = []Spec{
	{Market: core.MarketHR, DisplayName: "Home Run", EntityType: EntityBatter, RequiredFeatureTables: []string{"batter_daily_features"}, OutputType: OutputProbability, EdgeMethod: EdgeProbVsImplied, ThresholdFamily: FamilyDefault, LineupRequirement: LineupRequired, MissingDataPolicy: PolicyStoreWithRiskFlags, WeatherRecommended: true, MinimumSampleSize: features.MinimumPA},
	{Market: core.MarketK, DisplayName: "Pitcher Strikeouts", EntityType: EntityPitcher, RequiredFeatureTables: []string{"pitcher_daily_features"}, OutputType: OutputProjection, EdgeMethod: EdgeProjectionVsLine, ThresholdFamily: FamilyDefault, LineupRequirement: LineupNotRequired, MissingDataPolicy: PolicyStoreWithRiskFlags, MinimumSampleSize: features.MinimumBF},
	{Market: core.MarketHits1P, DisplayName: "1+ Hits", EntityType: EntityBatter, RequiredFeatureTables: []string{"batter_daily_features"}, OutputType: OutputProbability, EdgeMethod: EdgeProbVsImplied, ThresholdFamily: FamilyDefault, LineupRequirement: LineupRequired, MissingDataPolicy: PolicyStoreWithRiskFlags, MinimumSampleSize: features.MinimumPA},
	{Market: core.MarketHitsLine, DisplayName: "Hits O/U", EntityType: EntityBatter, RequiredFeatureTables: []string{"batter_daily_features"}, OutputType: OutputProjection, EdgeMethod: EdgeProjectionVsLine, ThresholdFamily: FamilyDefault, LineupRequirement: LineupRequired, MissingDataPolicy: PolicyStoreWithRiskFlags, MinimumSampleSize: features.MinimumPA},
	{Market: core.MarketTotalBasesLn, DisplayName: "Total Bases O/U", EntityType: EntityBatter, RequiredFeatureTables: []string{"batter_daily_features"}, OutputType: OutputProjection, EdgeMethod: EdgeProjectionVsLine, ThresholdFamily: FamilyDefault, LineupRequirement: LineupRequired, MissingDataPolicy: PolicyStoreWithRiskFlags, MinimumSampleSize: features.MinimumPA},
	{Market: core.MarketOutsRecorded, DisplayName: "Outs Recorded O/U", EntityType: EntityPitcher, RequiredFeatureTables: []string{"pitcher_daily_features"}, OutputType: OutputProjection, EdgeMethod: EdgeProjectionVsLine, ThresholdFamily: FamilyConservative, LineupRequirement: LineupNotRequired, MissingDataPolicy: PolicyStoreWithRiskFlags, MinimumSampleSize: features.MinimumBF},
	{Market: core.MarketMoneyline, DisplayName: "Moneyline", EntityType: EntityGame, RequiredFeatureTables: []string{"team_daily_features", "game_context_features"}, OutputType: OutputProbability, EdgeMethod: EdgeProbVsImplied, ThresholdFamily: FamilyDefault, LineupRequirement: LineupRecommended, MissingDataPolicy: PolicyDegradeConfidence, WeatherRecommended: true},
	{Market: core.MarketTotal, DisplayName: "Game Total", EntityType: EntityGame, RequiredFeatureTables: []string{"team_daily_features", "game_context_features"}, OutputType: OutputProjection, EdgeMethod: EdgeProjectionVsLine, ThresholdFamily: FamilyDefault, LineupRequirement: LineupRecommended, MissingDataPolicy: PolicyDegradeConfidence, WeatherRecommended: true},
	{Market: core.MarketF5Moneyline, DisplayName: "F5 Moneyline", EntityType: EntityGame, RequiredFeatureTables: []string{"team_daily_features", "game_context_features"}, OutputType: OutputProbability, EdgeMethod: EdgeProbVsImplied, ThresholdFamily: FamilyConservative, LineupRequirement: LineupRecommended, MissingDataPolicy: PolicyDegradeConfidence, WeatherRecommended: true, SupportsF5: true},
	{Market: core.MarketF5Total, DisplayName: "F5 Total", EntityType: EntityGame, RequiredFeatureTables: []string{"team_daily_features", "game_context_features"}, OutputType: OutputProjection, EdgeMethod: EdgeProjectionVsLine, ThresholdFamily: FamilyConservative, LineupRequirement: LineupRecommended, MissingDataPolicy: PolicyDegradeConfidence, WeatherRecommended: true, SupportsF5: true},
	{Market: core.MarketTeamTotal, DisplayName: "Team Total", EntityType: EntityTeam, RequiredFeatureTables: []string{"team_daily_features", "game_context_features"}, OutputType: OutputProjection, EdgeMethod: EdgeProjectionVsLine, ThresholdFamily: FamilyDefault, LineupRequirement: LineupRecommended, MissingDataPolicy: PolicyDegradeConfidence, WeatherRecommended: true},
}
