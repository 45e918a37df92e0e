package grader

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"stormlightlabs.org/mlbedge/internal/core"
)

// oddsSource is the subset of *store.Store the capturer reads odds
// from and the subset it writes closing lines to.
type oddsSource interface {
	GamesOnDate(ctx context.Context, date core.Date) ([]core.Game, error)
	ActiveScoresForGame(ctx context.Context, gameID core.GameID) ([]core.ModelScore, error)
	BestAvailableOdds(ctx context.Context, key core.SelectionKey) (*core.MarketOdds, error)
	LatestPregameOdds(ctx context.Context, key core.SelectionKey, commenceTime time.Time) (*core.MarketOdds, error)
	RecordClosingLine(ctx context.Context, line core.ClosingLine) error
}

// Capturer polls games approaching first pitch and snapshots the
// closing line for every currently scored selection, so CLV can be
// computed once the bet settles. Modeled on a fixed-interval ticker
// poll rather than an event trigger, since game start times are known
// well in advance.
type Capturer struct {
	store    oddsSource
	stream   *redis.Client
	policy   ClosingLinePolicy
	interval time.Duration
	log      *log.Logger
}

func NewCapturer(store oddsSource, stream *redis.Client, policy ClosingLinePolicy, interval time.Duration, logger *log.Logger) *Capturer {
	return &Capturer{store: store, stream: stream, policy: policy, interval: interval, log: logger}
}

// Run polls until ctx is cancelled, capturing closing lines for every
// game starting on date once per tick.
func (c *Capturer) Run(ctx context.Context, date core.Date) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	if err := c.captureOnce(ctx, date); err != nil {
		c.log.Error("initial closing line capture failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.captureOnce(ctx, date); err != nil {
				c.log.Error("closing line capture failed", "err", err)
			}
		}
	}
}

func (c *Capturer) captureOnce(ctx context.Context, date core.Date) error {
	games, err := c.store.GamesOnDate(ctx, date)
	if err != nil {
		return err
	}

	captured := 0
	for _, game := range games {
		scores, err := c.store.ActiveScoresForGame(ctx, game.ID)
		if err != nil {
			c.log.Warn("scores lookup failed", "game", game.ID, "err", err)
			continue
		}
		for _, sc := range scores {
			line, err := c.resolveClosingLine(ctx, sc.SelectionKey, game)
			if err != nil {
				continue
			}
			if err := c.store.RecordClosingLine(ctx, *line); err != nil {
				c.log.Warn("closing line write failed", "selection", sc.SelectionKey, "err", err)
				continue
			}
			captured++
		}
	}

	c.log.Info("closing lines captured", "date", date.String(), "count", captured)
	if c.stream != nil && captured > 0 {
		c.stream.XAdd(ctx, &redis.XAddArgs{
			Stream: "mlbedge:closing_lines.captured",
			Values: map[string]any{"date": date.String(), "count": captured},
		})
	}
	return nil
}

func (c *Capturer) resolveClosingLine(ctx context.Context, key core.SelectionKey, game core.Game) (*core.ClosingLine, error) {
	var odds *core.MarketOdds
	var err error

	switch c.policy {
	case PolicyBestAvailable:
		odds, err = c.store.BestAvailableOdds(ctx, key)
	default:
		odds, err = c.store.LatestPregameOdds(ctx, key, game.Date.Time())
	}
	if err != nil {
		return nil, err
	}

	return &core.ClosingLine{
		GameID: game.ID, SelectionKey: key, ImpliedProb: odds.ImpliedProb,
		CapturedAt: time.Now().UTC(), Policy: string(c.policy),
	}, nil
}
