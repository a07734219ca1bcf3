package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Workers != 1 {
		t.Fatalf("expected one worker by default, got %d", cfg.Workers)
	}
	if cfg.MatchMaxAttempts != 1 {
		t.Fatalf("expected single attempt by default, got %d", cfg.MatchMaxAttempts)
	}
	if cfg.MaxRowFailureRatio != 0.1 {
		t.Fatalf("unexpected MaxRowFailureRatio: %v", cfg.MaxRowFailureRatio)
	}
	if cfg.ClaimStaleAfter != 0 {
		t.Fatalf("expected interrupted claims to be reclaimable by default, got %s", cfg.ClaimStaleAfter)
	}
	if cfg.FetchRetries != 3 || cfg.FetchRetryBaseDelay != time.Second {
		t.Fatalf("unexpected fetch retry defaults: %d %s", cfg.FetchRetries, cfg.FetchRetryBaseDelay)
	}
	if cfg.StoreBackend != StoreBackendPostgres {
		t.Fatalf("unexpected store backend: %s", cfg.StoreBackend)
	}
	if cfg.TrackerCacheThreshold != 20 {
		t.Fatalf("unexpected tracker cache threshold: %d", cfg.TrackerCacheThreshold)
	}
	if !cfg.DBDisablePreparedBinary {
		t.Fatalf("expected DBDisablePreparedBinary=true by default")
	}
	if cfg.ScheduleURL == "" {
		t.Fatalf("expected default schedule url")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `foo=bar, uptrace-dsn="https://token@api.uptrace.dev/1"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/1" {
		t.Fatalf("unexpected dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SERVICE_NAME", "cricket-ingest-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "cricket-ingest-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_MatchURLsParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("MATCH_URLS", " https://a.example/x-1/full-scorecard, ,https://a.example/y-2/full-scorecard ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.MatchURLs) != 2 {
		t.Fatalf("unexpected match urls: %+v", cfg.MatchURLs)
	}
	if cfg.MatchURLs[1] != "https://a.example/y-2/full-scorecard" {
		t.Fatalf("unexpected second url: %q", cfg.MatchURLs[1])
	}
}

func TestLoad_NumericBounds(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero workers", "WORKERS", "0"},
		{"too many workers", "WORKERS", "500"},
		{"negative retries", "FETCH_RETRIES", "-1"},
		{"zero attempts", "MATCH_MAX_ATTEMPTS", "0"},
		{"ratio above one", "MAX_ROW_FAILURE_RATIO", "1.5"},
		{"non numeric ratio", "MAX_ROW_FAILURE_RATIO", "lots"},
		{"zero timeout", "FETCH_TIMEOUT", "0s"},
		{"negative match delay", "MATCH_DELAY", "-1s"},
		{"bad duration", "CLAIM_STALE_AFTER", "soon"},
		{"too few pages", "MAX_PAGES_PER_MATCH", "2"},
		{"unknown store", "STORE_BACKEND", "sqlite"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_RetryDelayOrdering(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("FETCH_RETRY_BASE_DELAY", "10s")
	t.Setenv("FETCH_RETRY_MAX_DELAY", "1s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when max delay is below base delay")
	}
}

func TestLoad_RedisPageCacheRequiresURL(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PAGE_CACHE_ENABLED", "true")
	t.Setenv("PAGE_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for redis cache without REDIS_URL")
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PageCacheBackend != PageCacheRedis || !cfg.PageCacheEnabled {
		t.Fatalf("unexpected page cache config: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CRICKET_DOTENV_MARKER=loaded\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("CRICKET_DOTENV_MARKER", "")
	os.Unsetenv("CRICKET_DOTENV_MARKER")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("CRICKET_DOTENV_MARKER"); got != "loaded" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}
