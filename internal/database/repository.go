package database

import (
	"context"
	"errors"

	"github.com/kozaktomas/facegrep/internal/report"
)

// ErrCatalogUnavailable indicates the similarity store could not be reached.
// Fatal for the current item, never for sibling workers.
var ErrCatalogUnavailable = errors.New("similarity catalog unavailable")

// Catalog is the persisted collection of (identity, vector) pairs.
// It is a shared, read-mostly resource: safe for concurrent use.
type Catalog interface {
	// UpsertIdentity inserts an identity by name or returns the existing id.
	UpsertIdentity(ctx context.Context, name string) (int64, error)
	// InsertTag stores a tag for an identity. Duplicate tags are a no-op.
	InsertTag(ctx context.Context, identityID int64, name string) error
	// InsertEmbedding appends one immutable embedding row.
	InsertEmbedding(ctx context.Context, identityID int64, vector []float32) (int64, error)
	// MatchTopK returns up to k matches with score > threshold, ordered by
	// descending score then ascending identity name. A non-empty tagFilter
	// restricts the search to identities carrying at least one of the tags.
	MatchTopK(ctx context.Context, vector []float32, tagFilter []string, threshold float64, k int) ([]Match, error)
	// ListIdentities returns all identities with their embedding counts,
	// ordered by name.
	ListIdentities(ctx context.Context) ([]Identity, error)
}

// ReportStore persists reports and their records.
type ReportStore interface {
	// InsertReport persists report metadata and fills in ID and CreatedAt.
	InsertReport(ctx context.Context, r *report.Report) error
	// UpdateRecordCount flushes the running record count for a report.
	UpdateRecordCount(ctx context.Context, reportID int64, count int) error
	// UpsertRecords bulk-inserts records; a conflicting insert on the dedup
	// key is a successful no-op.
	UpsertRecords(ctx context.Context, records []report.Record) error
	// ListReports returns all reports ordered by creation time.
	ListReports(ctx context.Context) ([]ReportSummary, error)
	// RecordsFor returns all records belonging to a report.
	RecordsFor(ctx context.Context, reportID int64) ([]report.Record, error)
}
