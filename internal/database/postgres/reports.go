package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/facegrep/internal/database"
	"github.com/kozaktomas/facegrep/internal/report"
)

// ReportRepository provides PostgreSQL-backed report and record persistence.
type ReportRepository struct {
	pool *Pool
}

// NewReportRepository creates a new PostgreSQL report repository.
func NewReportRepository(pool *Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// InsertReport persists report metadata and fills in the generated ID and
// creation timestamp. Reports are persisted before any record references them.
func (r *ReportRepository) InsertReport(ctx context.Context, rep *report.Report) error {
	query := `
		INSERT INTO reports (name, tags, kind, record_count)
		VALUES ($1, $2, $3, 0)
		RETURNING id, created_at
	`

	tags := rep.Tags
	if tags == nil {
		tags = []string{}
	}
	if err := r.pool.QueryRow(ctx, query, rep.Name, pq.Array(tags), string(rep.Kind)).Scan(&rep.ID, &rep.CreatedAt); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// UpdateRecordCount flushes the running record count for a report.
func (r *ReportRepository) UpdateRecordCount(ctx context.Context, reportID int64, count int) error {
	if _, err := r.pool.Exec(ctx, "UPDATE reports SET record_count = $1 WHERE id = $2", count, reportID); err != nil {
		return fmt.Errorf("update record count: %w", err)
	}
	return nil
}

// UpsertRecords bulk-inserts records in one transaction. A conflicting
// insert on the dedup key (report, file path, source, name, score) is a
// successful no-op; the unique constraint is the authoritative safety net
// against concurrent duplicate writes.
func (r *ReportRepository) UpsertRecords(ctx context.Context, records []report.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (report_id, file_path, source, name, score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (report_id, file_path, source, name, score) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.ReportID, rec.FilePath, rec.Source, rec.IdentityName, report.RoundScore(rec.Score)); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListReports returns all reports ordered by creation time.
func (r *ReportRepository) ListReports(ctx context.Context) ([]database.ReportSummary, error) {
	query := `
		SELECT id, name, kind, tags, record_count, created_at
		FROM reports
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []database.ReportSummary
	for rows.Next() {
		var s database.ReportSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind, pq.Array(&s.Tags), &s.RecordCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// RecordsFor returns all records belonging to a report.
func (r *ReportRepository) RecordsFor(ctx context.Context, reportID int64) ([]report.Record, error) {
	query := `
		SELECT id, report_id, file_path, source, name, score, created_at
		FROM records
		WHERE report_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []report.Record
	for rows.Next() {
		var rec report.Record
		if err := rows.Scan(&rec.ID, &rec.ReportID, &rec.FilePath, &rec.Source, &rec.IdentityName, &rec.Score, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Verify interface compliance
var _ database.ReportStore = (*ReportRepository)(nil)
