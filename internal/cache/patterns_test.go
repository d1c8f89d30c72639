package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dircache/dircache/internal/storage"
	"github.com/dircache/dircache/pkg/types"
)

func findPattern(patterns []types.NavigationPattern, from, to string) *types.NavigationPattern {
	for i := range patterns {
		if patterns[i].FromPath == from && patterns[i].ToPath == to {
			return &patterns[i]
		}
	}
	return nil
}

func TestRecordTransition(t *testing.T) {
	c := New(testConfig(), WithClock(newFakeClock()))
	defer c.Close()

	c.Set("/a", testContents(), 0)
	c.Set("/b", testContents(), 0)

	c.Get("/a")
	c.Get("/b")

	pattern := findPattern(c.NavigationPatterns(), "/a", "/b")
	if pattern == nil {
		t.Fatal("expected pattern /a -> /b after consecutive hits")
	}
	if pattern.Frequency != 1 {
		t.Errorf("expected frequency 1, got %d", pattern.Frequency)
	}

	// Repeating the transition increments the same record.
	c.Get("/a")
	c.Get("/b")

	patterns := c.NavigationPatterns()
	pattern = findPattern(patterns, "/a", "/b")
	if pattern == nil || pattern.Frequency != 2 {
		t.Fatalf("expected frequency 2, got %+v", pattern)
	}

	count := 0
	for _, p := range patterns {
		if p.FromPath == "/a" && p.ToPath == "/b" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one record per ordered pair, got %d", count)
	}
}

func TestTransitionIgnoresMisses(t *testing.T) {
	c := New(testConfig(), WithClock(newFakeClock()))
	defer c.Close()

	c.Set("/a", testContents(), 0)
	c.Set("/b", testContents(), 0)

	c.Get("/a")
	c.Get("/missing") // miss must not move the learner's location
	c.Get("/b")

	if findPattern(c.NavigationPatterns(), "/a", "/b") == nil {
		t.Error("expected transition /a -> /b across an intervening miss")
	}
	if findPattern(c.NavigationPatterns(), "/missing", "/b") != nil {
		t.Error("miss must not become a transition source")
	}
}

func TestTransitionIgnoresSelf(t *testing.T) {
	c := New(testConfig(), WithClock(newFakeClock()))
	defer c.Close()

	c.Set("/a", testContents(), 0)
	c.Get("/a")
	c.Get("/a")

	if len(c.NavigationPatterns()) != 0 {
		t.Error("repeated hits on the same path must not record a transition")
	}
}

func TestPatternsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableNavigationPatterns = false
	c := New(cfg, WithClock(newFakeClock()))
	defer c.Close()

	c.Set("/a", testContents(), 0)
	c.Set("/b", testContents(), 0)
	c.Get("/a")
	c.Get("/b")

	if len(c.NavigationPatterns()) != 0 {
		t.Error("expected no patterns when learning is disabled")
	}
}

func TestPatternCap(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.MaxPatterns = 2
	c := New(cfg, WithClock(clock))
	defer c.Close()

	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		c.Set(p, testContents(), 0)
	}

	// /a -> /b twice, then /b -> /c, then /c -> /d.
	c.Get("/a")
	c.Get("/b")
	c.Get("/a")
	c.Get("/b")
	clock.Advance(time.Second)
	c.Get("/c")
	clock.Advance(time.Second)
	c.Get("/d")

	patterns := c.NavigationPatterns()
	if len(patterns) != 2 {
		t.Fatalf("expected pattern table capped at 2, got %d", len(patterns))
	}
	if findPattern(patterns, "/a", "/b") == nil {
		t.Error("expected the most frequent pattern to survive")
	}
}

func TestPreloadPathsRanking(t *testing.T) {
	clock := newFakeClock()
	c := New(testConfig(), WithClock(clock))
	defer c.Close()

	// Parent is cached and lists three children.
	c.Set("/objekte", &types.DirectoryContents{
		Folders: []types.Folder{
			{Name: "haus-1", Path: "/objekte/haus-1"},
			{Name: "haus-2", Path: "/objekte/haus-2"},
			{Name: "haus-3", Path: "/objekte/haus-3"},
		},
	}, 0)
	c.Set("/objekte/haus-1", testContents(), 0)
	c.Set("/dokumente", testContents(), 0)

	// Learn /objekte/haus-1 -> /dokumente twice and -> /objekte once.
	c.Get("/objekte/haus-1")
	c.Get("/dokumente")
	c.Get("/objekte/haus-1")
	c.Get("/dokumente")
	c.Get("/objekte/haus-1")
	clock.Advance(time.Second)
	c.Get("/objekte")
	c.Get("/objekte/haus-1")

	// Expire /dokumente so it becomes a candidate again.
	c.Invalidate("/dokumente")

	candidates := c.PreloadPaths("/objekte/haus-1")

	for _, p := range candidates {
		if p == "/objekte/haus-1" {
			t.Error("candidates must exclude the path itself")
		}
		if p == "/objekte" {
			t.Error("candidates must exclude live cached paths")
		}
	}

	want := map[string]bool{
		"/objekte/haus-2": true,
		"/objekte/haus-3": true,
		"/dokumente":      true,
	}
	for _, p := range candidates {
		delete(want, p)
	}
	if len(want) != 0 {
		t.Errorf("missing candidates %v in %v", want, candidates)
	}
}

func TestPreloadPathsParentOnly(t *testing.T) {
	c := New(testConfig(), WithClock(newFakeClock()))
	defer c.Close()

	candidates := c.PreloadPaths("/objekte/haus-1")
	if len(candidates) != 1 || candidates[0] != "/objekte" {
		t.Errorf("expected only the parent candidate, got %v", candidates)
	}

	if got := c.PreloadPaths("/"); len(got) != 0 {
		t.Errorf("root has no parent, got %v", got)
	}
}

func TestPatternPersistenceRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	clock := newFakeClock()

	c := New(testConfig(), WithClock(clock), WithPatternStore(store))
	c.Set("/a", testContents(), 0)
	c.Set("/b", testContents(), 0)
	c.Get("/a")
	c.Get("/b")

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	raw, err := store.GetItem(PatternStorageKey)
	if err != nil || raw == "" {
		t.Fatalf("expected persisted patterns, got %q (err %v)", raw, err)
	}
	var stored []types.NavigationPattern
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("persisted patterns are not valid JSON: %v", err)
	}

	reopened := New(testConfig(), WithClock(clock), WithPatternStore(store))
	defer reopened.Close()

	pattern := findPattern(reopened.NavigationPatterns(), "/a", "/b")
	if pattern == nil || pattern.Frequency != 1 {
		t.Fatalf("expected pattern to survive restart, got %+v", pattern)
	}
}

func TestLoadPatternsCorrupt(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.SetItem(PatternStorageKey, "{not json"); err != nil {
		t.Fatal(err)
	}

	c := New(testConfig(), WithClock(newFakeClock()), WithPatternStore(store))
	defer c.Close()

	if len(c.NavigationPatterns()) != 0 {
		t.Error("expected empty pattern table after corrupt load")
	}
}
