package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FACEGREP_DATABASE_URL", "")
	t.Setenv("FACEGREP_EMBEDDING_DIM", "")
	t.Setenv("FACEGREP_CRAWL_WORKERS", "")
	t.Setenv("FACEGREP_MATCH_THRESHOLD", "")

	cfg := Load()

	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default MaxOpenConns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected default MaxIdleConns 5, got %d", cfg.Database.MaxIdleConns)
	}
	if cfg.Embedding.Dim != 4096 {
		t.Errorf("expected default embedding dim 4096, got %d", cfg.Embedding.Dim)
	}
	if cfg.Crawl.Workers != 4 {
		t.Errorf("expected default workers 4, got %d", cfg.Crawl.Workers)
	}
	if cfg.Crawl.QueueSize != 256 {
		t.Errorf("expected default queue size 256, got %d", cfg.Crawl.QueueSize)
	}
	if cfg.Crawl.Threshold != 0.3 {
		t.Errorf("expected default threshold 0.3, got %f", cfg.Crawl.Threshold)
	}
	if cfg.Download.Dir == "" {
		t.Error("expected download dir to fall back to temp dir")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FACEGREP_DATABASE_URL", "postgres://localhost/facegrep")
	t.Setenv("FACEGREP_ALEPH_URL", "https://aleph.example.org")
	t.Setenv("FACEGREP_ALEPH_API_KEY", "secret")
	t.Setenv("FACEGREP_EMBEDDING_URL", "http://localhost:8000")
	t.Setenv("FACEGREP_EMBEDDING_DIM", "2622")
	t.Setenv("FACEGREP_NEO4J_URI", "bolt://localhost:7687")
	t.Setenv("FACEGREP_CRAWL_WORKERS", "8")
	t.Setenv("FACEGREP_MATCH_THRESHOLD", "0.5")
	t.Setenv("FACEGREP_HNSW_ENABLED", "true")
	t.Setenv("FACEGREP_DOWNLOAD_DIR", "/var/cache/facegrep")

	cfg := Load()

	if cfg.Database.URL != "postgres://localhost/facegrep" {
		t.Errorf("unexpected database URL %q", cfg.Database.URL)
	}
	if cfg.Aleph.URL != "https://aleph.example.org" {
		t.Errorf("unexpected aleph URL %q", cfg.Aleph.URL)
	}
	if cfg.Aleph.APIKey != "secret" {
		t.Errorf("unexpected aleph API key %q", cfg.Aleph.APIKey)
	}
	if cfg.Embedding.Dim != 2622 {
		t.Errorf("expected embedding dim 2622, got %d", cfg.Embedding.Dim)
	}
	if cfg.Neo4j.URI != "bolt://localhost:7687" {
		t.Errorf("unexpected neo4j URI %q", cfg.Neo4j.URI)
	}
	if cfg.Crawl.Workers != 8 {
		t.Errorf("expected workers 8, got %d", cfg.Crawl.Workers)
	}
	if cfg.Crawl.Threshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %f", cfg.Crawl.Threshold)
	}
	if !cfg.Database.HNSWEnabled {
		t.Error("expected HNSW to be enabled")
	}
	if cfg.Download.Dir != "/var/cache/facegrep" {
		t.Errorf("unexpected download dir %q", cfg.Download.Dir)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("FACEGREP_CRAWL_WORKERS", "not-a-number")
	cfg := Load()
	if cfg.Crawl.Workers != 4 {
		t.Errorf("expected fallback to default 4, got %d", cfg.Crawl.Workers)
	}

	t.Setenv("FACEGREP_CRAWL_WORKERS", "-3")
	cfg = Load()
	if cfg.Crawl.Workers != 4 {
		t.Errorf("expected fallback to default 4 for negative value, got %d", cfg.Crawl.Workers)
	}
}
