package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskibarqy/cricket-ingest/external/cricinfo"
	"github.com/riskibarqy/cricket-ingest/internal/config"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:              config.EnvDev,
		ServiceName:         "cricket-ingest",
		StoreBackend:        config.StoreBackendMemory,
		SourceBaseURL:       "https://www.espncricinfo.com",
		ScheduleURL:         "https://www.espncricinfo.com/live-cricket-match-results",
		FetchTimeout:        time.Second,
		FetchUserAgent:      "test-agent",
		FetchMaxBodyBytes:   1 << 20,
		FetchRetryBaseDelay: time.Millisecond,
		FetchRetryMaxDelay:  time.Millisecond,
		MaxPagesPerMatch:    10,
		MaxRowFailureRatio:  0.1,
		MatchMaxAttempts:    1,
		Workers:             1,
		PageCacheBackend:    config.PageCacheMemory,
		PageCacheTTL:        time.Minute,
	}
}

func TestNew_MemoryStoreWithStaticRefs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "matches.txt")
	content := "# backlog\n/series/ipl-2024-1410320/gujarat-titans-vs-chennai-super-kings-59th-match-1426296/full-scorecard\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write url file: %v", err)
	}

	cfg := memoryConfig()
	cfg.MatchURLs = []string{"https://www.espncricinfo.com/series/ipl-2024-1410320/chennai-super-kings-vs-royal-challengers-bengaluru-1st-match-1422119/full-scorecard"}
	cfg.MatchURLsFile = file
	cfg.PageCacheEnabled = true

	a, err := New(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			t.Fatalf("close app: %v", err)
		}
	}()

	if a.RunID == "" || a.Tracker.RunID() != a.RunID {
		t.Fatalf("expected run id shared with tracker, got app=%q tracker=%q", a.RunID, a.Tracker.RunID())
	}
	if a.Ingestion == nil || a.Players == nil {
		t.Fatalf("expected ingestion and player services")
	}

	refs, err := a.Lister.ListMatches(context.Background())
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(refs) != 2 || refs[0].ID != 1422119 || refs[1].ID != 1426296 {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}

func TestNew_UsesScheduleWithoutStaticRefs(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	if _, ok := a.Lister.(*cricinfo.ScheduleClient); !ok {
		t.Fatalf("expected schedule lister, got %T", a.Lister)
	}
}

func TestNew_ReportsUnreachableRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.PageCacheEnabled = true
	cfg.PageCacheBackend = config.PageCacheRedis
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	if _, err := New(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected redis connection error")
	}
}
