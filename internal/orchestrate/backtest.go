package orchestrate

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/grader"
)

var backtestColumns = []string{
	"game_date", "market", "game_id", "selection_key", "signal", "model_score", "model_prob",
	"edge", "side", "line", "open_odds", "open_implied_prob", "close_implied_prob", "clv",
	"outcome_value", "settlement", "profit_units", "score_bucket", "prob_bucket",
}

// BacktestRow is one scored-and-graded selection's replayed result, the
// row shape written to CSV.
type BacktestRow struct {
	GameDate         core.Date
	Market           core.Market
	GameID           core.GameID
	SelectionKey     core.SelectionKey
	Signal           core.Signal
	ModelScore       float64
	ModelProb        *float64
	Edge             *float64
	Side             core.Side
	Line             *float64
	OpenOdds         int
	OpenImpliedProb  float64
	CloseImpliedProb *float64
	CLV              *float64
	OutcomeValue     *float64
	Settlement       string
	ProfitUnits      *float64
	ScoreBucket      string
	ProbBucket       string
}

// BacktestMetrics aggregates a Backtester.Run over every row it
// produced: win rate (pushes excluded from the denominator), ROI on
// units staked, and calibration buckets for a reliability check between
// model_prob and realized win rate.
type BacktestMetrics struct {
	Rows          int
	Wins          int
	Losses        int
	Pushes        int
	UnitsStaked   float64
	UnitsReturned float64
	ByProbBucket  map[string]BucketStat
}

// BucketStat tracks realized win rate within one probability bucket,
// the calibration check: a well-calibrated model's realized rate
// should track the bucket's own midpoint.
type BucketStat struct {
	Count int
	Wins  int
}

// WinRate excludes pushes from both numerator and denominator — a push
// is neither evidence for nor against the model.
func (m BacktestMetrics) WinRate() float64 {
	decided := m.Wins + m.Losses
	if decided == 0 {
		return 0
	}
	return float64(m.Wins) / float64(decided)
}

// ROI is net units returned over units staked.
func (m BacktestMetrics) ROI() float64 {
	if m.UnitsStaked == 0 {
		return 0
	}
	return m.UnitsReturned / m.UnitsStaked
}

// Backtester replays one market's scoring logic over a historical
// range using only data that would have been visible as of each game
// date, then joins the realized outcome so results can be judged
// without ever having peeked at the future.
type Backtester struct {
	Pipeline *Pipeline
	Signals  []core.Signal // empty means every signal tier
}

// Run scores market for every date in [start, end], discards any
// selection not among the requested signal tiers, joins the realized
// market outcome, and returns both the row-level replay and its
// aggregate metrics. A hard assertion guards the one invariant a
// backtest can never violate: no outcome settled on or after the date
// being scored may enter that date's scoring pass.
func (bt *Backtester) Run(ctx context.Context, market core.Market, start, end core.Date) ([]BacktestRow, BacktestMetrics, error) {
	metrics := BacktestMetrics{ByProbBucket: make(map[string]BucketStat)}
	var rows []BacktestRow

	for d := start; !end.Before(d); d = d.AddDays(1) {
		games, err := bt.Pipeline.Store.GamesOnDate(ctx, d)
		if err != nil {
			return nil, metrics, err
		}

		dayRows, err := bt.scoreAndJoin(ctx, market, d, games)
		if err != nil {
			return nil, metrics, err
		}
		for _, r := range dayRows {
			if !bt.signalAllowed(r.Signal) {
				continue
			}
			rows = append(rows, r)
			accumulate(&metrics, r)
		}
	}
	return rows, metrics, nil
}

// assertOddsNotFromFuture guards the one way a backtest can silently
// cheat: BestAvailableOdds has no date filter of its own, so a replay
// of date D could otherwise price a selection using odds fetched after
// D (including the closing line, fetched once the game is underway).
// Any row priced from odds fetched on or after the replayed date fails
// the replay outright rather than producing a falsely profitable
// result.
func assertOddsNotFromFuture(odds *core.MarketOdds, asOf core.Date) error {
	if odds == nil {
		return nil
	}
	if !core.NewDate(odds.FetchedAt).Before(asOf) {
		return core.NewInvariantError("no_lookahead",
			fmt.Sprintf("selection %s priced from odds fetched on or after replay date %s", odds.SelectionKey, asOf.String()))
	}
	return nil
}

// assertOutcomeNotFromFuture mirrors assertOddsNotFromFuture: a backtest
// joining an outcome settled on or after the replayed date would be
// grading a selection against information that wasn't yet known on
// that date.
func assertOutcomeNotFromFuture(outcome *core.MarketOutcome, asOf core.Date) error {
	if outcome == nil {
		return nil
	}
	if !core.NewDate(outcome.SettledAt).Before(asOf) {
		return core.NewInvariantError("no_lookahead",
			fmt.Sprintf("selection %s joined an outcome settled on or after replay date %s", outcome.SelectionKey, asOf.String()))
	}
	return nil
}

func (bt *Backtester) signalAllowed(sig core.Signal) bool {
	if len(bt.Signals) == 0 {
		return true
	}
	for _, s := range bt.Signals {
		if s == sig {
			return true
		}
	}
	return false
}

func (bt *Backtester) scoreAndJoin(ctx context.Context, market core.Market, d core.Date, games []core.Game) ([]BacktestRow, error) {
	spec, err := bt.Pipeline.Registry.Get(market)
	if err != nil {
		return nil, err
	}

	runID, err := bt.Pipeline.Store.StartScoreRun(ctx, d, market)
	if err != nil {
		return nil, err
	}
	scores, err := bt.Pipeline.scoreMarket(ctx, spec, games, runID)
	if err != nil {
		return nil, err
	}
	if err := bt.Pipeline.Store.FinishScoreRun(ctx, runID, len(scores), "complete", ""); err != nil {
		return nil, err
	}

	var out []BacktestRow
	for _, sc := range scores {
		row := BacktestRow{
			GameDate: d, Market: sc.Market, GameID: sc.GameID, SelectionKey: sc.SelectionKey,
			Signal: sc.Signal, ModelScore: sc.ModelScore, ModelProb: sc.ModelProb, Edge: sc.Edge,
			Side: sc.Side, Line: sc.Line, Settlement: "pending",
			ScoreBucket: scoreBucket(sc.ModelScore), ProbBucket: probBucket(sc.ModelProb),
		}

		if odds, err := bt.Pipeline.Store.BestAvailableOdds(ctx, sc.SelectionKey); err == nil {
			if err := assertOddsNotFromFuture(odds, d); err != nil {
				return nil, err
			}
			row.OpenOdds, row.OpenImpliedProb = odds.AmericanOdds, odds.ImpliedProb
		}
		if cl, err := bt.Pipeline.Store.ClosingLineFor(ctx, sc.SelectionKey); err == nil {
			v := cl.ImpliedProb
			row.CloseImpliedProb = &v
			clv := grader.CaptureCLV(row.OpenImpliedProb, v)
			row.CLV = &clv
		}
		if outcome, err := bt.Pipeline.Store.OutcomeForSelection(ctx, sc.SelectionKey); err == nil {
			if err := assertOutcomeNotFromFuture(outcome, d); err != nil {
				return nil, err
			}
			v := outcome.OutcomeValue
			row.OutcomeValue = &v
			settlement, profit := grader.SettleBet(core.Bet{StakeUnits: 1, OpenAmerican: row.OpenOdds}, *outcome, sc.Line, sc.Side, oddsDecimal(row.OpenOdds))
			row.Settlement = string(settlement)
			p := profit
			row.ProfitUnits = &p
		}
		out = append(out, row)
	}
	return out, nil
}

func oddsDecimal(american int) float64 {
	if american == 0 {
		return 2.0
	}
	if american > 0 {
		return 1 + float64(american)/100
	}
	return 1 + 100/float64(-american)
}

func scoreBucket(score float64) string {
	lo := int(score/10) * 10
	return fmt.Sprintf("%d-%d", lo, lo+10)
}

func probBucket(prob *float64) string {
	if prob == nil {
		return "unknown"
	}
	lo := int(*prob * 10)
	return fmt.Sprintf("%.1f-%.1f", float64(lo)/10, float64(lo+1)/10)
}

func accumulate(m *BacktestMetrics, r BacktestRow) {
	m.Rows++
	switch grader.Settlement(r.Settlement) {
	case grader.SettlementWin:
		m.Wins++
	case grader.SettlementLoss:
		m.Losses++
	case grader.SettlementPush:
		m.Pushes++
	}
	m.UnitsStaked += 1
	if r.ProfitUnits != nil {
		m.UnitsReturned += *r.ProfitUnits
	}

	stat := m.ByProbBucket[r.ProbBucket]
	stat.Count++
	if grader.Settlement(r.Settlement) == grader.SettlementWin {
		stat.Wins++
	}
	m.ByProbBucket[r.ProbBucket] = stat
}

// WriteCSV serializes rows in the fixed backtestColumns order.
func WriteCSV(w io.Writer, rows []BacktestRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(backtestColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write(rowToCSV(r)); err != nil {
			return err
		}
	}
	return writer.Error()
}

func rowToCSV(r BacktestRow) []string {
	return []string{
		r.GameDate.String(), string(r.Market), string(r.GameID), string(r.SelectionKey), string(r.Signal),
		strconv.FormatFloat(r.ModelScore, 'f', 2, 64), floatOrBlank(r.ModelProb), floatOrBlank(r.Edge),
		string(r.Side), floatOrBlank(r.Line), strconv.Itoa(r.OpenOdds),
		strconv.FormatFloat(r.OpenImpliedProb, 'f', 4, 64), floatOrBlank(r.CloseImpliedProb), floatOrBlank(r.CLV),
		floatOrBlank(r.OutcomeValue), r.Settlement, floatOrBlank(r.ProfitUnits), r.ScoreBucket, r.ProbBucket,
	}
}

func floatOrBlank(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 4, 64)
}
