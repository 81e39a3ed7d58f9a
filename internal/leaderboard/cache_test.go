package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/tagquest/api/internal/hunt"
)

func TestScoreOrdering(t *testing.T) {
	early := time.Date(2026, 6, 13, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	// More checkpoints always ranks first.
	if !(score(3, &late) < score(2, &early)) {
		t.Error("3 scans ranked after 2 scans")
	}
	// Same count: the earlier scan ranks first.
	if !(score(2, &early) < score(2, &late)) {
		t.Error("earlier scan ranked after later scan")
	}
	// Members who never scanned sort last.
	if !(score(1, &early) < score(0, nil)) {
		t.Error("scanner ranked after non-scanner")
	}
}

func TestNilCacheNoOps(t *testing.T) {
	ctx := context.Background()

	for _, c := range []*Cache{nil, New(nil)} {
		if err := c.record(ctx, 1, hunt.LeaderboardEntry{PlayerID: "p1"}); err != nil {
			t.Errorf("record: %v", err)
		}
		if err := c.Fill(ctx, 1, nil); err != nil {
			t.Errorf("Fill: %v", err)
		}
		entries, hit, err := c.Entries(ctx, 1)
		if err != nil || hit || entries != nil {
			t.Errorf("Entries = %v, %v, %v", entries, hit, err)
		}
		if err := c.Drop(ctx, 1); err != nil {
			t.Errorf("Drop: %v", err)
		}
		if err := c.Remove(ctx, 1, "p1"); err != nil {
			t.Errorf("Remove: %v", err)
		}
	}
}
