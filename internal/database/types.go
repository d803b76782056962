package database

import "time"

// Identity represents a named subject in the catalog.
type Identity struct {
	ID             int64
	Name           string
	Tags           []string
	EmbeddingCount int
	CreatedAt      time.Time
}

// Match is one result row of a thresholded nearest-match query.
type Match struct {
	IdentityName string
	Score        float64 // cosine similarity in [-1, 1]
}

// ReportSummary is one row of the report listing.
type ReportSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Tags        []string  `json:"tags"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// IndexedEmbedding is one embedding row loaded for the in-memory index.
type IndexedEmbedding struct {
	ID           int64
	IdentityName string
	Vector       []float32
}
