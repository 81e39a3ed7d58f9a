// Package leaderboard caches per-game standings in Redis so the
// scoreboard endpoint does not rescan memberships on every poll. The
// database stays the source of truth; every method here is best-effort
// and a nil *Cache disables caching entirely.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tagquest/api/internal/hunt"
)

const keyPrefix = "hunt:lb:"

// Entries are ranked by a single composite sorted-set score: more
// checkpoints first, earlier last scan breaking ties. Members with an
// equal score fall back to Redis's lexicographic member order, which
// matches ranking by player ID.
func score(scanned int, lastScan *time.Time) float64 {
	s := -int64(scanned) * 1_000_000_000
	if lastScan != nil {
		s += lastScan.Unix()
	}
	return float64(s)
}

func rankKey(gameID int64) string { return keyPrefix + strconv.FormatInt(gameID, 10) }
func entryKey(gameID int64, playerID string) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, gameID, playerID)
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an optional Redis client. A nil client yields a cache
// whose methods all no-op, so callers never branch on availability.
func New(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: 5 * time.Minute}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// record writes one player's standing. Only Fill calls it: the rank
// key must always hold every member of the game or none, otherwise a
// partially-written key would be served as the full standings.
func (c *Cache) record(ctx context.Context, gameID int64, e hunt.LeaderboardEntry) error {
	if !c.enabled() {
		return nil
	}
	var last *time.Time
	if e.LastScanAt != nil {
		t, err := time.Parse(time.RFC3339, *e.LastScanAt)
		if err != nil {
			return fmt.Errorf("parsing last scan time: %w", err)
		}
		last = &t
	}
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, rankKey(gameID), redis.Z{
		Score:  score(e.Scanned, last),
		Member: e.PlayerID,
	})
	fields := map[string]any{
		"name":    e.DisplayName,
		"team":    e.Team,
		"scanned": e.Scanned,
	}
	if e.LastScanAt != nil {
		fields["last_scan"] = *e.LastScanAt
	}
	pipe.HSet(ctx, entryKey(gameID, e.PlayerID), fields)
	pipe.Expire(ctx, rankKey(gameID), c.ttl)
	pipe.Expire(ctx, entryKey(gameID, e.PlayerID), c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Fill replaces the cached standings for a game wholesale.
func (c *Cache) Fill(ctx context.Context, gameID int64, entries []hunt.LeaderboardEntry) error {
	if !c.enabled() {
		return nil
	}
	if err := c.Drop(ctx, gameID); err != nil {
		return err
	}
	for _, e := range entries {
		if err := c.record(ctx, gameID, e); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the cached standings in rank order. The second
// return value reports a cache hit; on a miss the caller recomputes
// from the database and may Fill.
func (c *Cache) Entries(ctx context.Context, gameID int64) ([]hunt.LeaderboardEntry, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	ids, err := c.client.ZRange(ctx, rankKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	entries := make([]hunt.LeaderboardEntry, 0, len(ids))
	for _, id := range ids {
		fields, err := c.client.HGetAll(ctx, entryKey(gameID, id)).Result()
		if err != nil {
			return nil, false, err
		}
		if len(fields) == 0 {
			// The per-player hash expired ahead of the rank set.
			return nil, false, nil
		}
		scanned, err := strconv.Atoi(fields["scanned"])
		if err != nil {
			return nil, false, fmt.Errorf("cached scan count for %s: %w", id, err)
		}
		e := hunt.LeaderboardEntry{
			PlayerID:    id,
			DisplayName: fields["name"],
			Team:        fields["team"],
			Scanned:     scanned,
		}
		if last, ok := fields["last_scan"]; ok && last != "" {
			e.LastScanAt = &last
		}
		entries = append(entries, e)
	}
	return entries, true, nil
}

// Drop removes a game's cached standings, rank set and per-player
// hashes both. Called whenever the standings change: on every new
// claim and whenever claims are deleted. The next leaderboard read
// recomputes from the database and refills.
func (c *Cache) Drop(ctx context.Context, gameID int64) error {
	if !c.enabled() {
		return nil
	}
	ids, err := c.client.ZRange(ctx, rankKey(gameID), 0, -1).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, rankKey(gameID))
	for _, id := range ids {
		keys = append(keys, entryKey(gameID, id))
	}
	return c.client.Del(ctx, keys...).Err()
}

// Remove evicts a single player from a game's cached standings.
func (c *Cache) Remove(ctx context.Context, gameID int64, playerID string) error {
	if !c.enabled() {
		return nil
	}
	if err := c.client.ZRem(ctx, rankKey(gameID), playerID).Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, entryKey(gameID, playerID)).Err()
}
