package orchestrate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"stormlightlabs.org/mlbedge/internal/core"
)

const bulkChunkDays = 60

// DefaultBackfillWorkers is the Phase 2 worker pool size used when a
// caller does not override it.
const DefaultBackfillWorkers = 4

// BackfillOptions controls which stages the historical backfill runs
// for each date in range. Schedule and pitch-event ingestion always
// run; the rest are opt-in because re-scoring and re-grading years of
// history is expensive and most backfills only need fresh raw data.
type BackfillOptions struct {
	BuildFeatures bool
	Score         bool
	Market        core.Market // empty means every registered market
	Grade         bool
	Workers       int // Phase 2 concurrency; 0 means DefaultBackfillWorkers
	NoBulk        bool
}

// BackfillResult tallies what Backfill actually touched, for the CLI to
// report.
type BackfillResult struct {
	DatesProcessed int
	GamesIngested  int
	Failed         []core.Date
}

// Backfill spans [start, end] in two phases. Phase 1 walks the range
// in sequential bulkChunkDays-day windows, bulk-fetching schedules and
// pitch events per chunk — sequential because the upstream bulk
// endpoints are themselves chunked and gain nothing from parallel
// chunk requests, and because later feature windows read events
// written by earlier chunks. Phase 2 then fans out per-date
// feature/score/grade work across a bounded worker pool, since each
// date's post-ingestion work is independent once Phase 1 has landed
// every game and event row it needs.
func (p *Pipeline) Backfill(ctx context.Context, start, end core.Date, opts BackfillOptions) (BackfillResult, error) {
	var result BackfillResult

	dates, err := p.backfillPhase1(ctx, start, end, opts, &result)
	if err != nil {
		return result, fmt.Errorf("phase 1 bulk ingest: %w", err)
	}

	if !opts.BuildFeatures && !opts.Score && !opts.Grade {
		return result, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultBackfillWorkers
	}

	if err := p.backfillPhase2(ctx, dates, opts, workers, &result); err != nil {
		return result, fmt.Errorf("phase 2 scoring: %w", err)
	}
	return result, nil
}

func (p *Pipeline) backfillPhase1(ctx context.Context, start, end core.Date, opts BackfillOptions, result *BackfillResult) ([]core.Date, error) {
	var dates []core.Date

	for chunkStart := start; !end.Before(chunkStart); chunkStart = chunkStart.AddDays(bulkChunkDays) {
		chunkEnd := chunkStart.AddDays(bulkChunkDays - 1)
		if end.Before(chunkEnd) {
			chunkEnd = end
		}

		gameDates := make(map[core.GameID]core.Date)
		for d := chunkStart; !chunkEnd.Before(d); d = d.AddDays(1) {
			games, err := p.FetchSchedule(ctx, d)
			if err != nil {
				p.Log.Warn("bulk schedule fetch failed", "date", d.String(), "err", err)
				continue
			}
			result.GamesIngested += len(games)
			for _, g := range games {
				if g.Status == "final" {
					gameDates[g.ID] = d
				}
			}
			dates = append(dates, d)
		}

		if !opts.NoBulk && p.PitchEvents != nil && len(gameDates) > 0 {
			events, err := p.PitchEvents.Bulk(ctx, gameDates)
			if err != nil {
				p.Log.Warn("bulk pitch event fetch failed", "chunk_start", chunkStart.String(), "err", err)
			} else if len(events) > 0 {
				if err := p.Store.UpsertPitchEvents(ctx, events); err != nil {
					return dates, err
				}
			}
		}
	}
	return dates, nil
}

func (p *Pipeline) backfillPhase2(ctx context.Context, dates []core.Date, opts BackfillOptions, workers int, result *BackfillResult) error {
	sem := semaphore.NewWeighted(int64(workers))
	group, gctx := errgroup.WithContext(ctx)

	for _, d := range dates {
		d := d
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		group.Go(func() error {
			defer sem.Release(1)
			if err := p.backfillOneDate(gctx, d, opts); err != nil {
				p.Log.Warn("backfill date failed", "date", d.String(), "err", err)
				result.Failed = append(result.Failed, d)
				return nil
			}
			result.DatesProcessed++
			return nil
		})
	}
	return group.Wait()
}

func (p *Pipeline) backfillOneDate(ctx context.Context, d core.Date, opts BackfillOptions) error {
	if opts.BuildFeatures {
		if err := p.BuildFeatures(ctx, d); err != nil {
			return fmt.Errorf("build features %s: %w", d.String(), err)
		}
	}
	if opts.Score {
		if _, err := p.Score(ctx, d, opts.Market); err != nil {
			return fmt.Errorf("score %s: %w", d.String(), err)
		}
	}
	if opts.Grade {
		if err := p.Grade(ctx, d); err != nil {
			return fmt.Errorf("grade %s: %w", d.String(), err)
		}
	}
	return nil
}
