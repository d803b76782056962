package config

import (
	"os"
	"strconv"
)

type Config struct {
	Database  DatabaseConfig
	Aleph     AlephConfig
	Embedding EmbeddingConfig
	Neo4j     Neo4jConfig
	Crawl     CrawlConfig
	Download  DownloadConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	HNSWEnabled  bool   // Build an in-memory HNSW index over the catalog on startup
}

type AlephConfig struct {
	URL    string // Aleph instance base URL (e.g. https://aleph.occrp.org)
	APIKey string // API key, sent as "Authorization: ApiKey <key>"
}

type EmbeddingConfig struct {
	URL string // embedding server base URL, defaults to http://localhost:8000
	Dim int    // vector dimension, defaults to 4096 (VGG-Face)
}

type Neo4jConfig struct {
	URI      string // bolt/neo4j URI, empty disables graph export
	Username string
	Password string
}

type CrawlConfig struct {
	Workers   int     // worker count, defaults to 4
	QueueSize int     // bounded work queue capacity, defaults to 256
	Threshold float64 // minimum cosine similarity for a match, defaults to 0.3
}

type DownloadConfig struct {
	Dir string // directory for downloaded files, defaults to os.TempDir()
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean flag.
func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("FACEGREP_DATABASE_URL"),
			MaxOpenConns: envInt("FACEGREP_DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("FACEGREP_DATABASE_MAX_IDLE_CONNS", 5),
			HNSWEnabled:  envBool("FACEGREP_HNSW_ENABLED"),
		},
		Aleph: AlephConfig{
			URL:    os.Getenv("FACEGREP_ALEPH_URL"),
			APIKey: os.Getenv("FACEGREP_ALEPH_API_KEY"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("FACEGREP_EMBEDDING_URL"),
			Dim: envInt("FACEGREP_EMBEDDING_DIM", 4096),
		},
		Neo4j: Neo4jConfig{
			URI:      os.Getenv("FACEGREP_NEO4J_URI"),
			Username: os.Getenv("FACEGREP_NEO4J_USERNAME"),
			Password: os.Getenv("FACEGREP_NEO4J_PASSWORD"),
		},
		Crawl: CrawlConfig{
			Workers:   envInt("FACEGREP_CRAWL_WORKERS", 4),
			QueueSize: envInt("FACEGREP_CRAWL_QUEUE_SIZE", 256),
			Threshold: envFloat("FACEGREP_MATCH_THRESHOLD", 0.3),
		},
		Download: DownloadConfig{
			Dir: downloadDir(),
		},
	}
}

func downloadDir() string {
	if dir := os.Getenv("FACEGREP_DOWNLOAD_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
