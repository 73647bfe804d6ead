package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.QueuePath == "" {
		t.Fatalf("expected default queue path")
	}
	if cfg.SinkBackend != "rest" {
		t.Fatalf("expected rest sink by default")
	}
	if cfg.SyncBatchLimit != 200 {
		t.Fatalf("expected default batch limit")
	}
	if cfg.RetentionDays != 30 {
		t.Fatalf("expected default retention")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("QUEUE_PATH", "/var/lib/tripsync/queue.db")
	t.Setenv("SINK_BACKEND", "postgres")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon-key")
	t.Setenv("SYNC_INTERVAL_SEC", "10")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.QueuePath != "/var/lib/tripsync/queue.db" {
		t.Fatalf("expected override queue path")
	}
	if cfg.SinkBackend != "postgres" {
		t.Fatalf("expected override sink backend")
	}
	if cfg.SupabaseURL != "https://example.supabase.co" {
		t.Fatalf("expected override supabase url")
	}
	if cfg.SyncIntervalSec != 10 {
		t.Fatalf("expected override sync interval")
	}
}
