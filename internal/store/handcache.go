package store

import (
	"context"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// HandednessCache is the narrow read-through cache surface *cache.Client
// satisfies. Defined here rather than imported from package cache so
// store never needs to depend on the whole Redis client, only on a key
// builder and a get/set pair.
type HandednessCache interface {
	EntityKey(resource, id string) string
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// pitcherHandCacheTTL is long relative to a single pipeline run: a
// pitcher's throwing hand never changes mid-season, so staleness risk
// is effectively zero and the value is worth keeping warm across runs.
const pitcherHandCacheTTL = 30 * time.Minute

// HandFor returns a pitcher's throwing hand, satisfying it from Cache
// when one is wired and falling back to compute (a store round trip)
// otherwise. Exists because a batter feature build looks up the same
// opposing pitcher's hand once per lineup slot.
func (s *Store) HandFor(ctx context.Context, pitcherID core.PlayerID, compute func() (core.Handedness, error)) (core.Handedness, error) {
	if s.Cache == nil {
		return compute()
	}

	key := s.Cache.EntityKey("pitcher_hand", string(pitcherID))
	var hand core.Handedness
	if s.Cache.Get(ctx, key, &hand) {
		return hand, nil
	}

	hand, err := compute()
	if err != nil {
		return "", err
	}
	_ = s.Cache.Set(ctx, key, hand, pitcherHandCacheTTL)
	return hand, nil
}
