// Package graph exports report records to a Neo4j graph: identity nodes,
// probe-image nodes and APPEARS_IN edges between them.
package graph

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kozaktomas/facegrep/internal/report"
)

// QueryRunner executes one write query against the graph store.
type QueryRunner interface {
	Run(ctx context.Context, query string, params map[string]any) error
}

// Neo4jRunner is the production QueryRunner backed by a Neo4j driver.
type Neo4jRunner struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jRunner connects to a Neo4j instance and verifies connectivity.
func NewNeo4jRunner(ctx context.Context, uri, username, password string) (*Neo4jRunner, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("could not connect to neo4j: %w", err)
	}
	return &Neo4jRunner{driver: driver}, nil
}

func (r *Neo4jRunner) Run(ctx context.Context, query string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, r.driver, query, params, neo4j.EagerResultTransformer)
	return err
}

// Close releases the underlying driver.
func (r *Neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// mergeRecordQuery upserts both nodes and the edge in one statement, so a
// repeated export of the same record changes nothing.
const mergeRecordQuery = `
MERGE (p:Identity {name: $name})
MERGE (i:Image {source: $source})
SET i.file_path = $filePath
MERGE (p)-[r:APPEARS_IN]->(i)
SET r.score = $score`

// Exporter writes report records into a graph store.
type Exporter struct {
	runner QueryRunner
}

// NewExporter creates an exporter on top of a query runner.
func NewExporter(runner QueryRunner) *Exporter {
	return &Exporter{runner: runner}
}

// Export merges every record into the graph. The export is best-effort: a
// failing record is logged and counted, the rest are still attempted. It
// returns the number of records that could not be exported.
func (e *Exporter) Export(ctx context.Context, records []report.Record) int {
	failures := 0
	for _, rec := range records {
		if err := e.exportRecord(ctx, rec); err != nil {
			log.Printf("could not export record for %s: %v", rec.IdentityName, err)
			failures++
		}
	}
	return failures
}

func (e *Exporter) exportRecord(ctx context.Context, rec report.Record) error {
	return e.runner.Run(ctx, mergeRecordQuery, map[string]any{
		"name":     report.NormalizeIdentityName(rec.IdentityName),
		"source":   rec.Source,
		"filePath": rec.FilePath,
		"score":    report.RoundScore(rec.Score),
	})
}
