package report

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Kind describes what produced a report.
type Kind string

const (
	// KindEntity is a manual search against a local file.
	KindEntity Kind = "entity"
	// KindAlephEntity is a lookup of a single remote Aleph entity.
	KindAlephEntity Kind = "aleph_entity"
	// KindAlephCrawl is a bulk crawl of an Aleph collection.
	KindAlephCrawl Kind = "aleph_crawl"
)

// Record is one confirmed match between a probe image and a catalog identity.
// Records are append-only and owned by exactly one report.
type Record struct {
	ID           int64     `json:"id,omitempty"`
	ReportID     int64     `json:"report_id"`
	FilePath     string    `json:"file_path"`
	Source       string    `json:"source"`
	IdentityName string    `json:"name"`
	Score        float64   `json:"score"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// RoundScore normalizes a similarity score to 6 decimal places so the dedup
// key is stable regardless of where the score came from.
func RoundScore(s float64) float64 {
	return math.Round(s*1e6) / 1e6
}

// Key returns the derived dedup key for a record. Two records with the same
// key describe the same match and must be stored at most once.
func (r Record) Key() string {
	return fmt.Sprintf("%d|%s|%s|%s|%.6f", r.ReportID, r.FilePath, r.Source, r.IdentityName, RoundScore(r.Score))
}

// Report represents one logical run: a manual file search, a single remote
// entity lookup, or a full collection crawl. It owns its in-memory record
// set for the duration of the run; the record count only ever grows.
type Report struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`

	mu      sync.Mutex
	records []Record
	seen    map[string]struct{}
	count   int
}

// New creates an in-memory report. It has no ID until persisted.
func New(name string, tags []string, kind Kind) *Report {
	return &Report{
		Name: name,
		Kind: kind,
		Tags: tags,
		seen: make(map[string]struct{}),
	}
}

// Add appends a record if its dedup key is new and returns whether it was
// added. A repeated identical match is ignored, not an error.
func (r *Report) Add(rec Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ReportID = r.ID
	rec.Score = RoundScore(rec.Score)

	key := rec.Key()
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	r.records = append(r.records, rec)
	r.count++
	return true
}

// Records returns a copy of the accumulated records in insertion order.
func (r *Report) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Count returns the number of distinct records added so far.
func (r *Report) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
