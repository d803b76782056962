package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegrep/internal/aleph"
	"github.com/kozaktomas/facegrep/internal/config"
	"github.com/kozaktomas/facegrep/internal/content"
	"github.com/kozaktomas/facegrep/internal/crawler"
	"github.com/kozaktomas/facegrep/internal/faces"
	"github.com/kozaktomas/facegrep/internal/report"
)

var alephCmd = &cobra.Command{
	Use:   "aleph",
	Short: "Search Aleph entities and crawl collections",
}

var alephSearchCmd = &cobra.Command{
	Use:   "search <entity-id>",
	Short: "Match a single Aleph entity against the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlephSearch,
}

var alephCrawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl every image in an Aleph collection",
	Long: `Stream all Image entities of a collection through the worker pool and
accumulate matches into a report. Per-item failures are skipped; a failed
stream aborts the crawl after draining the queue.

Example:
  facegrep aleph crawl --foreign-id some_leak --tag politicians --workers 8`,
	RunE: runAlephCrawl,
}

func init() {
	rootCmd.AddCommand(alephCmd)
	alephCmd.AddCommand(alephSearchCmd)
	alephCmd.AddCommand(alephCrawlCmd)

	alephSearchCmd.Flags().StringSlice("tag", nil, "Restrict the search to identities with this tag (repeatable)")

	alephCrawlCmd.Flags().String("foreign-id", "", "Foreign id of the collection to crawl (required)")
	alephCrawlCmd.Flags().StringSlice("tag", nil, "Restrict the search to identities with this tag (repeatable)")
	alephCrawlCmd.Flags().Int("workers", 0, "Worker count (defaults to FACEGREP_CRAWL_WORKERS)")
	_ = alephCrawlCmd.MarkFlagRequired("foreign-id")
}

func runAlephSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	entityID := args[0]
	tags := mustGetStringSlice(cmd, "tag")

	client, err := aleph.NewClient(cfg.Aleph.URL, cfg.Aleph.APIKey)
	if err != nil {
		return err
	}
	store, err := content.NewStore(cfg.Download.Dir)
	if err != nil {
		return err
	}

	pool, identities, reports, err := openRepositories(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer pool.Close()

	embedder := faces.NewEmbeddingClient(cfg.Embedding.URL)
	pipeline := crawler.NewPipeline(crawler.AlephSource{Client: client}, store, embedder, identities, crawler.PipelineOptions{
		Tags:      tags,
		Threshold: cfg.Crawl.Threshold,
	})

	records, err := pipeline.ProcessEntity(ctx, entityID)
	if err != nil {
		return err
	}

	rep := report.New("aleph entity "+entityID, tags, report.KindAlephEntity)
	if err := persistReport(ctx, reports, rep, records); err != nil {
		return err
	}

	printRecords(rep.Records())
	fmt.Printf("Report %d stored with %d record(s)\n", rep.ID, rep.Count())
	return nil
}

func runAlephCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	foreignID := mustGetString(cmd, "foreign-id")
	tags := mustGetStringSlice(cmd, "tag")
	workers := mustGetInt(cmd, "workers")
	if workers <= 0 {
		workers = cfg.Crawl.Workers
	}

	client, err := aleph.NewClient(cfg.Aleph.URL, cfg.Aleph.APIKey)
	if err != nil {
		return err
	}
	store, err := content.NewStore(cfg.Download.Dir)
	if err != nil {
		return err
	}

	pool, identities, reports, err := openRepositories(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer pool.Close()

	collection, err := client.LoadCollectionByForeignID(ctx, foreignID)
	if err != nil {
		return err
	}

	embedder := faces.NewEmbeddingClient(cfg.Embedding.URL)
	source := crawler.AlephSource{Client: client}
	pipeline := crawler.NewPipeline(source, store, embedder, identities, crawler.PipelineOptions{
		Tags:      tags,
		Threshold: cfg.Crawl.Threshold,
	})
	c := crawler.New(source, pipeline, reports, crawler.Options{
		Workers:   workers,
		QueueSize: cfg.Crawl.QueueSize,
		Progress:  true,
	})

	rep := report.New("crawl "+foreignID, tags, report.KindAlephCrawl)
	stats, err := c.Crawl(ctx, collection, rep)

	fmt.Printf("Crawl %s: %d enqueued, %d processed, %d skipped, %d record(s) in report %d\n",
		c.State(), stats.Enqueued, stats.Processed, stats.Skipped, rep.Count(), rep.ID)
	return err
}
