package core

import "time"

// Game is one scheduled or completed MLB game.
type Game struct {
	ID          GameID
	Date        Date
	HomeTeam    TeamID
	AwayTeam    TeamID
	VenueID     string
	IsDoubleheader bool
	GameNumber  int
	Status      string // scheduled, live, final, cancelled
	FinalHomeRuns *int
	FinalAwayRuns *int
	ProbableHomePitcher *PlayerID
	ProbableAwayPitcher *PlayerID
	UpdatedAt   time.Time
}

// IsFinal reports whether the game has a settled result.
func (g *Game) IsFinal() bool { return g.Status == "final" }

// PitchEvent is a single recorded pitch, the atomic input to rolling
// window stats. Anchored to its game's Date for no-lookahead filtering.
type PitchEvent struct {
	GameID     GameID
	Date       Date
	AtBatIndex int
	PitchIndex int
	BatterID   PlayerID
	PitcherID  PlayerID
	Inning     int
	IsTopInning bool
	Outs       int
	EventType  string // e.g. "Strikeout", "Single", "Home Run", "Walk"
	IsPlateAppearanceEnd bool
	IsAtBatEnd bool
	TotalBasesOnPlay int
	RBIOnPlay  int

	// BatterHand/PitcherHand are the matchup sides in effect for this
	// pitch, used for platoon splits. Empty when unknown.
	BatterHand  Handedness
	PitcherHand Handedness

	// TimesThroughOrder is this pitcher's 1-indexed count of facing this
	// same batter within the game (1 = first time through the order).
	TimesThroughOrder int

	// Batted-ball data, populated only on balls in play; zero values
	// elsewhere. BattedBallType is one of "FB", "LD", "GB", "PU".
	ExitVelocityMPH *float64
	LaunchAngleDeg  *float64
	BattedBallType  string
	IsPulled        bool

	// Pitch-level swing data, populated on every pitch regardless of
	// outcome. IsChase implies IsSwing on a pitch outside the zone.
	PitchType       string // e.g. "FF", "SL", "CH", "CU"
	PitchVelocityMPH *float64
	IsSwing         bool
	IsWhiff         bool
	IsChase         bool
}

// BatterWindowStats is a rolling aggregate ending strictly before Date
// (the no-lookahead anchor): built from PitchEvents with event.Date < D.
type BatterWindowStats struct {
	BatterID    PlayerID
	AsOfDate    Date // D; window covers [D-WindowDays, D)
	WindowDays  int
	PlateAppearances int
	AtBats      int
	Hits        int
	Singles     int
	Doubles     int
	Triples     int
	HomeRuns    int
	Strikeouts  int
	Walks       int
	TotalBases  int
	RBI         int
	RunsScored  int // partial: only a batter's own home-run trot is attributable without base-state tracking

	// Contact quality, accumulated over balls in play only.
	BattedBalls     int
	ExitVeloSum     float64
	ExitVeloCount   int
	LaunchAngleSum  float64
	BarrelCount     int
	HardHitCount    int
	SweetSpotCount  int
	FlyBalls        int
	LineDrives      int
	GroundBalls     int
	PopUps          int
	PulledBalls     int
}

// PitcherWindowStats mirrors BatterWindowStats for the pitching side.
type PitcherWindowStats struct {
	PitcherID   PlayerID
	AsOfDate    Date
	WindowDays  int
	BattersFaced int
	OutsRecorded int
	Strikeouts  int
	Walks       int
	HitsAllowed int
	HomeRunsAllowed int
	EarnedRuns  int
	Appearances int // distinct games pitched in within the window

	// Contact quality allowed, accumulated over balls in play.
	BattedBallsAllowed int
	ExitVeloSum        float64
	ExitVeloCount      int
	BarrelCountAllowed int
	HardHitCountAllowed int
	FlyBallsAllowed    int

	// Pitch-level swing and stuff data.
	Pitches          int
	Swings           int
	Whiffs           int
	ChasePitches     int
	ChaseSwings      int
	FastballVeloSum  float64
	FastballVeloCount int

	// Times-through-order buckets, keyed by PitchEvent.TimesThroughOrder
	// capped at 3 (3 = third time through the order or later).
	TTOBattersFaced    [3]int
	TTOStrikeouts      [3]int
	TTOHomeRunsAllowed [3]int
}

// BatterDailyFeatures is the materialized feature row a batter-prop model
// reads for (BatterID, GameID). Every input is strictly before GameDate.
// Rate families carry a _7/_14/_30 suffix for their window in days.
type BatterDailyFeatures struct {
	BatterID     PlayerID
	GameID       GameID
	GameDate     Date
	PAPerGameL15 float64
	HRRateL30    float64
	HRRateL60    float64
	HitRateL15   float64
	KRateL15     float64
	ISOL30       float64

	PARate7, PARate14, PARate30 float64
	HitRate7, HitRate14, HitRate30 float64
	HRRate7, HRRate14, HRRate30 float64
	KRate7, KRate14, KRate30 float64
	BBRate7, BBRate14, BBRate30 float64
	SingleRate7, DoubleRate7, TripleRate7 float64
	RBIRate7, RunRate7 float64
	ISO7, ISO14, ISO30 float64
	SLG30, TBPerPA30 float64

	// Contact quality, 30-day window.
	BarrelPct30    float64
	HardHitPct30   float64
	AvgExitVeloMPH30 float64
	AvgLaunchAngleDeg30 float64
	SweetSpotPct30 float64

	// Batted-ball mix, 30-day window.
	FlyBallPct30   float64
	LineDrivePct30 float64
	GroundBallPct30 float64
	PullPct30      float64

	// Handedness splits vs the hand the opposing starter throws.
	ISOvsHand      float64
	HitRateVsHand  float64
	KRateVsHand    float64

	// Hot/cold deltas: positive means trending up relative to the
	// longer baseline.
	ISODelta7v30     float64
	HitRateDelta7v30 float64

	OpposingPitcherID *PlayerID
	PlatoonSplitHRRate float64 // vs opposing pitcher's throwing hand
	ParkHRFactor float64
	BattingOrderSlot *int
	IsStarter    bool
	SampleSizePA int
	BuiltAt      time.Time
}

// PitcherDailyFeatures mirrors BatterDailyFeatures for the pitching side.
type PitcherDailyFeatures struct {
	PitcherID    PlayerID
	GameID       GameID
	GameDate     Date
	KRateL5      float64
	KRateL10     float64
	BBRateL10    float64
	OutsPerStartL5 float64
	WhipL10      float64
	ERAL10       float64

	KRate14, KRate30   float64
	BBRate14, BBRate30 float64
	HR9L30             float64
	HRFBPct30          float64

	// Contact quality allowed, 30-day window.
	HardHitPctAllowed30 float64
	BarrelPctAllowed30  float64
	AvgExitVeloAllowedMPH30 float64
	FlyBallPctAllowed30 float64

	// Plate-discipline, 30-day window.
	WhiffPct30 float64
	ChasePct30 float64

	FastballVeloMPH     float64
	FastballVeloTrendMPH float64 // not computed by the pitcher builder; always 0

	OutsRecordedAvgL5 float64
	PitchesAvgL5      float64
	StarterRoleConfidence float64 // in [0,1]; average batters faced per appearance over 21, capped at 1

	// Platoon splits vs L/R hitters.
	KRateVsLeft, KRateVsRight   float64
	HRRateVsLeft, HRRateVsRight float64

	// Times-through-order effects.
	TTOKDecayPct       float64 // fractional drop in K rate from 1st to 3rd time through
	TTOHRIncreasePct   float64 // fractional rise in HR rate from 1st to 3rd time through
	TTOEnduranceScore  float64 // in [0,1]; how far a starter typically works into the order

	OpposingTeamKRate float64
	IsProbableStarter bool
	SampleSizeBF int
	BuiltAt      time.Time
}

// TeamDailyFeatures is a team-level rolling feature row for game markets.
type TeamDailyFeatures struct {
	TeamID       TeamID
	GameID       GameID
	GameDate     Date
	RunsPerGameL15 float64
	RunsAllowedL15 float64
	BullpenERAL15 float64
	WinPctL15    float64
	RestDays     int
	BuiltAt      time.Time
}

// GameContextFeatures holds game-level conditions known at build time.
// IsFinalContext distinguishes a pregame snapshot (lineup/weather may
// still change) from the locked context used at first-pitch.
type GameContextFeatures struct {
	GameID        GameID
	GameDate      Date
	VenueID       string
	WindSpeedMPH  *float64
	WindDirDeg    *float64
	TempF         *float64
	IsDome        bool
	HomeLineupConfirmed bool
	AwayLineupConfirmed bool
	IsFinalContext bool
	UmpireID      *string
	BuiltAt       time.Time
}

// MarketOdds is one priced selection snapshot from one book.
type MarketOdds struct {
	ID              int64
	GameID          GameID
	Market          Market
	SelectionKey    SelectionKey
	Side            Side
	Line            *float64
	Book            string
	AmericanOdds    int
	DecimalOdds     float64
	ImpliedProb     float64
	FetchedAt       time.Time
	IsActive        bool // fetch-provenance only, never a scoring input
	IsBestAvailable bool
}

// MarketSpec is the static registry row for one internal market code.
type MarketSpec struct {
	Market            Market
	DisplayName       string
	OutputType        string // "probability" | "projection" | "hybrid"
	ThresholdFamily    string // DEFAULT | CONSERVATIVE | AGGRESSIVE
	MissingDataPolicy string // "degrade_confidence" | "skip" | "store_with_risk_flags"
	MinimumSampleSize int
	SupportsF5        bool
}

// ScoreRun is one audit row for an invocation of the scoring pipeline.
type ScoreRun struct {
	ID        int64
	RunDate   Date
	Market    Market
	StartedAt time.Time
	FinishedAt *time.Time
	RowCount  int
	Status    string // running | complete | failed
	Reason    string // e.g. "lineup_confirmed" for a rescore trigger
}

// ModelScore is one scored selection row, the pipeline's primary output.
// Superseded rows stay in the table with IsActive=false; never updated
// in place (see Store.SupersedeScores).
type ModelScore struct {
	ID              int64
	RunID           int64
	GameID          GameID
	Market          Market
	SelectionKey    SelectionKey
	Side            Side
	Line            *float64
	ModelScore      float64
	ModelProb       *float64
	Edge            *float64
	Signal          Signal
	ConfidenceBand  ConfidenceBand
	RiskFlags       []RiskFlag
	VisibilityTier  VisibilityTier
	Reasons         []string
	IsActive        bool
	CreatedAt       time.Time
}

// MarketOutcome is the settled truth for one selection's market.
type MarketOutcome struct {
	GameID       GameID
	Market       Market
	SelectionKey SelectionKey
	OutcomeValue float64
	SettledAt    time.Time
}

// Bet is a recorded wager against a ModelScore, carrying CLV fields.
type Bet struct {
	ID             int64
	ModelScoreID   int64
	SelectionKey   SelectionKey
	StakeUnits     float64
	OpenAmerican   int
	OpenImplied    float64
	CloseImplied   *float64
	CLV            *float64
	Settlement     string // win | loss | push | pending
	ProfitUnits    *float64
	PlacedAt       time.Time
	SettledAt      *time.Time
}

// ClosingLine is the captured pregame-cutoff odds snapshot for one
// selection, used to compute CLV once the bet settles.
type ClosingLine struct {
	GameID       GameID
	SelectionKey SelectionKey
	ImpliedProb  float64
	CapturedAt   time.Time
	Policy       string // "latest_pregame" | "best_available"
}
