package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegrep/internal/config"
	"github.com/kozaktomas/facegrep/internal/graph"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List and export match reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports",
	RunE:  runReportList,
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a report's records",
	Long: `Export the records of a report. The json format writes to stdout; the
graph format merges identities, images and appears-in edges into Neo4j.
Re-running a graph export is idempotent.`,
	RunE: runReportExport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportExportCmd)

	reportExportCmd.Flags().Int64("report-id", 0, "Report to export (required)")
	reportExportCmd.Flags().String("format", "json", "Export format: json or graph")
	_ = reportExportCmd.MarkFlagRequired("report-id")
}

func runReportList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	pool, _, reports, err := openRepositories(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	list, err := reports.ListReports(ctx)
	if err != nil {
		return fmt.Errorf("could not list reports: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No reports found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tTAGS\tRECORDS\tCREATED")
	for _, rep := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			rep.ID, rep.Name, rep.Kind, strings.Join(rep.Tags, ","), rep.RecordCount,
			rep.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runReportExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	reportID := mustGetInt64(cmd, "report-id")
	format := mustGetString(cmd, "format")

	pool, _, reports, err := openRepositories(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	records, err := reports.RecordsFor(ctx, reportID)
	if err != nil {
		return fmt.Errorf("could not load records: %w", err)
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	case "graph":
		if cfg.Neo4j.URI == "" {
			return fmt.Errorf("FACEGREP_NEO4J_URI is not set")
		}
		runner, err := graph.NewNeo4jRunner(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			return err
		}
		defer runner.Close(ctx)

		failures := graph.NewExporter(runner).Export(ctx, records)
		if failures > 0 {
			return fmt.Errorf("export finished with %d failure(s) out of %d record(s)", failures, len(records))
		}
		fmt.Printf("Exported %d record(s) to the graph\n", len(records))
		return nil
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}
