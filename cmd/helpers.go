package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/facegrep/internal/config"
	"github.com/kozaktomas/facegrep/internal/database"
	"github.com/kozaktomas/facegrep/internal/database/postgres"
	"github.com/kozaktomas/facegrep/internal/report"
)

// openRepositories connects to Postgres and wires the repositories. When
// withIndex is set and the in-memory index is enabled in the config, the
// identity catalog is loaded into it up front.
func openRepositories(ctx context.Context, cfg *config.Config, withIndex bool) (*postgres.Pool, *postgres.IdentityRepository, *postgres.ReportRepository, error) {
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not connect to database: %w", err)
	}

	identities := postgres.NewIdentityRepository(pool)
	if withIndex && cfg.Database.HNSWEnabled {
		if err := identities.EnableHNSW(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("could not build catalog index: %w", err)
		}
	}

	return pool, identities, postgres.NewReportRepository(pool), nil
}

// persistReport stores a search report together with its records and flushes
// the final record count.
func persistReport(ctx context.Context, store database.ReportStore, rep *report.Report, records []report.Record) error {
	if err := store.InsertReport(ctx, rep); err != nil {
		return fmt.Errorf("could not persist report: %w", err)
	}
	for _, rec := range records {
		rep.Add(rec)
	}
	if err := store.UpsertRecords(ctx, rep.Records()); err != nil {
		return fmt.Errorf("could not persist records: %w", err)
	}
	if err := store.UpdateRecordCount(ctx, rep.ID, rep.Count()); err != nil {
		return fmt.Errorf("could not update record count: %w", err)
	}
	return nil
}

func printRecords(records []report.Record) {
	if len(records) == 0 {
		fmt.Println("No matches found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCORE\tSOURCE\tFILE")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%.6f\t%s\t%s\n", rec.IdentityName, rec.Score, rec.Source, rec.FilePath)
	}
	w.Flush()
}
