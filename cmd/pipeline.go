package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/alert"
	"stormlightlabs.org/mlbedge/internal/cache"
	"stormlightlabs.org/mlbedge/internal/config"
	"stormlightlabs.org/mlbedge/internal/fetchers"
	"stormlightlabs.org/mlbedge/internal/market"
	"stormlightlabs.org/mlbedge/internal/orchestrate"
	"stormlightlabs.org/mlbedge/internal/store"
)

// env bundles every long-lived dependency a command's RunE needs: the
// pipeline itself, the alert client, and a close func releasing the
// store and Redis connections. Built fresh per invocation since cobra
// commands are stateless between runs.
type env struct {
	Pipeline *orchestrate.Pipeline
	Alert    *alert.Client
	Log      *log.Logger
	close    func()
}

func (e *env) Close() {
	if e.close != nil {
		e.close()
	}
}

func findConfigPath(cmd *cobra.Command) string {
	if cmd == nil {
		return ""
	}
	if flag := cmd.Flags().Lookup("config"); flag != nil && flag.Value.String() != "" {
		return flag.Value.String()
	}
	return findConfigPath(cmd.Parent())
}

func loadConfigForCmd(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(findConfigPath(cmd))
}

func buildLogger(cmd *cobra.Command, debug bool) *log.Logger {
	timeFmt := time.DateTime
	if debug {
		timeFmt = time.Kitchen
	}
	return log.NewWithOptions(cmd.OutOrStdout(), log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFmt,
		Prefix:          "mlbedge",
		ReportCaller:    debug,
	})
}

// buildEnv loads config, opens the store (Postgres or embedded sqlite
// per cfg.Database.Engine), wires every fetcher through the shared
// cache client, and assembles the pipeline every daily/backfill/backtest
// command runs against.
func buildEnv(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()

	cfg, err := loadConfigForCmd(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := buildLogger(cmd, cfg.Server.DebugMode)

	var st *store.Store
	if cfg.Database.Engine == "sqlite" {
		st, err = store.OpenEmbedded(ctx, cfg.Database.URL)
	} else {
		st, err = store.OpenPostgres(ctx, cfg.Database.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var redisClient *redis.Client
	var cacheClient *cache.Client
	if cfg.Cache.Enabled {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Warn("redis unavailable, caching disabled", "err", err)
			redisClient.Close()
			redisClient = nil
		} else {
			cacheClient = cache.NewClient(redisClient, cache.Config{
				App:     "mlbedge",
				Env:     "prod",
				Version: cfg.Cache.Version,
				Enabled: true,
				TTLs: cache.TTLConfig{
					Entity:   time.Duration(cfg.Cache.TTLs.Entity) * time.Second,
					List:     cache.DefaultTTLConfig().List,
					Search:   cache.DefaultTTLConfig().Search,
					Upstream: time.Duration(cfg.Cache.TTLs.Upstream) * time.Second,
					Negative: time.Duration(cfg.Cache.TTLs.Negative) * time.Second,
				},
			})
		}
	}

	if cacheClient != nil {
		st.Cache = cacheClient
	}

	upstreamTTL := time.Duration(cfg.Cache.TTLs.Upstream) * time.Second
	newFetcherClient := func(source string) *fetchers.Client {
		c := fetchers.NewClient(redisClient, source, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
		if cacheClient != nil {
			c = c.WithCache(cacheClient, upstreamTTL)
		}
		return c
	}

	mlb := fetchers.NewMLBStatsFetcher(newFetcherClient("mlbstats"))
	weather := fetchers.NewWeatherFetcher(newFetcherClient("weather"), cfg.Weather.APIKey)
	odds := fetchers.NewOddsFetcher(newFetcherClient("odds"), cfg.Odds.APIKey)
	pitchEvents := fetchers.NewPitchEventFetcher(newFetcherClient("pitchevents"))

	pipeline := &orchestrate.Pipeline{
		Store:       st,
		Registry:    market.DefaultRegistry(),
		MLB:         mlb,
		Weather:     weather,
		Odds:        odds,
		PitchEvents: pitchEvents,
		Parks:       orchestrate.NewStaticParkFactors(nil),
		Log:         logger,
	}

	alertClient := alert.NewClient(cfg.Alerts, "http://localhost:8090", logger)

	closeFn := func() {
		st.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}

	return &env{Pipeline: pipeline, Alert: alertClient, Log: logger, close: closeFn}, nil
}
