package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/facegrep/internal/report"
)

type fakeRunner struct {
	calls   []map[string]any
	failFor string // identity name whose merge should fail
}

func (r *fakeRunner) Run(ctx context.Context, query string, params map[string]any) error {
	if r.failFor != "" && params["name"] == r.failFor {
		return errors.New("neo4j unavailable")
	}
	r.calls = append(r.calls, params)
	return nil
}

func TestExport(t *testing.T) {
	runner := &fakeRunner{}
	exporter := NewExporter(runner)

	records := []report.Record{
		{FilePath: "/data/a.jpg", Source: "ent-1", IdentityName: "Jiří Novák", Score: 0.81},
		{FilePath: "/data/b.jpg", Source: "ent-2", IdentityName: "Jane Doe", Score: 0.75},
	}

	failures := exporter.Export(context.Background(), records)
	if failures != 0 {
		t.Fatalf("expected no failures, got %d", failures)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 merges, got %d", len(runner.calls))
	}

	// Node keys use the normalized identity name.
	if runner.calls[0]["name"] != "jiri novak" {
		t.Errorf("expected normalized name, got %v", runner.calls[0]["name"])
	}
	if runner.calls[0]["source"] != "ent-1" {
		t.Errorf("unexpected source %v", runner.calls[0]["source"])
	}
	if runner.calls[1]["score"] != 0.75 {
		t.Errorf("unexpected score %v", runner.calls[1]["score"])
	}
}

func TestExportBestEffort(t *testing.T) {
	runner := &fakeRunner{failFor: "jane doe"}
	exporter := NewExporter(runner)

	records := []report.Record{
		{FilePath: "/data/a.jpg", Source: "ent-1", IdentityName: "Jane Doe", Score: 0.9},
		{FilePath: "/data/b.jpg", Source: "ent-2", IdentityName: "John Roe", Score: 0.8},
	}

	failures := exporter.Export(context.Background(), records)
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
	if len(runner.calls) != 1 || runner.calls[0]["name"] != "john roe" {
		t.Errorf("expected the remaining record to still export, got %v", runner.calls)
	}
}
