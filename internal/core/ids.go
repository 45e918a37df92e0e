package core

import (
	"strings"
	"time"
)

// GameID identifies a scheduled game by the upstream schedule's gamePk.
// Constructed by fetchers, never guessed by downstream packages.
type GameID string

// TeamID is the upstream schedule provider's team code (e.g. "NYY").
type TeamID string

// PlayerID is the upstream schedule/roster provider's player identifier.
type PlayerID string

// SelectionKey is the stable join axis across odds, scores, outcomes and
// bets: "{MARKET}|{kind}:{id}[|line:{line}][|{SIDE}]", e.g.
// "K|player:678|line:6.5|OVER". See oddsnorm.BuildSelectionKey.
type SelectionKey string

// Market is one of the internal market codes in the MarketSpec registry.
type Market string

const (
	MarketHR            Market = "HR"
	MarketK             Market = "K"
	MarketHits1P        Market = "HITS_1P"
	MarketHitsLine      Market = "HITS_LINE"
	MarketTotalBasesLn  Market = "TB_LINE"
	MarketOutsRecorded  Market = "OUTS_RECORDED"
	MarketMoneyline     Market = "ML"
	MarketTotal         Market = "TOTAL"
	MarketF5Moneyline   Market = "F5_ML"
	MarketF5Total       Market = "F5_TOTAL"
	MarketTeamTotal     Market = "TEAM_TOTAL"
)

// Side is the uppercase directional label on a priced selection
// ("OVER", "UNDER", "YES", "HOME", "AWAY"; odds rows carry the
// uppercased outcome name).
type Side string

// Handedness is a batter's stance or a pitcher's throwing arm.
type Handedness string

const (
	HandednessLeft   Handedness = "L"
	HandednessRight  Handedness = "R"
	HandednessSwitch Handedness = "S"
)

// Signal is the pipeline's recommended action for a scored selection.
type Signal string

const (
	SignalBet  Signal = "BET"
	SignalLean Signal = "LEAN"
	SignalFade Signal = "FADE"
	SignalSkip Signal = "SKIP"
)

// ConfidenceBand buckets a score's reliability, degraded by risk flags.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "HIGH"
	ConfidenceMedium ConfidenceBand = "MEDIUM"
	ConfidenceLow    ConfidenceBand = "LOW"
)

// VisibilityTier is a non-semantic marker column; nothing in this codebase
// branches scoring or grading logic on it.
type VisibilityTier string

const (
	VisibilityFree VisibilityTier = "FREE"
	VisibilityPro  VisibilityTier = "PRO"
)

// RiskFlag tags a reason a score's confidence was degraded or a field left
// null. Vocabulary is closed; new flags are added here, never invented
// ad-hoc at call sites.
type RiskFlag string

const (
	RiskFlagLineZero        RiskFlag = "logic:line_zero"
	RiskFlagSubMinimumPA    RiskFlag = "logic:sub_minimum_pa"
	RiskFlagMissingWeather  RiskFlag = "data:missing_weather"
	RiskFlagMissingLineup   RiskFlag = "data:missing_lineup"
	RiskFlagMissingOdds     RiskFlag = "data:missing_odds"
	RiskFlagStaleFeatures   RiskFlag = "data:stale_features"
	RiskFlagCalibrationGap  RiskFlag = "logic:no_calibration"
	RiskFlagPlatoonUnknown  RiskFlag = "logic:platoon_unknown"
)

// Date is a calendar day with no time-of-day component, used as the
// no-lookahead anchor throughout the feature store and scoring paths.
// Always compared and stored at day granularity (UTC midnight).
type Date time.Time

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date(t), nil
}

func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return time.Time(d).Format("2006-01-02") }

func (d Date) Before(other Date) bool { return time.Time(d).Before(time.Time(other)) }

func (d Date) AddDays(n int) Date { return Date(time.Time(d).AddDate(0, 0, n)) }

// MarshalJSON renders Date as "2006-01-02". Without this, encoding/json
// would reflect over time.Time's unexported fields and silently produce
// "{}" for every Date-bearing value sent through a JSON path.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
