package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegrep/internal/config"
	"github.com/kozaktomas/facegrep/internal/content"
	"github.com/kozaktomas/facegrep/internal/crawler"
	"github.com/kozaktomas/facegrep/internal/faces"
	"github.com/kozaktomas/facegrep/internal/report"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage and search the identity catalog",
}

var entityAddCmd = &cobra.Command{
	Use:   "add <image-path>",
	Short: "Add a reference photo for an identity",
	Long: `Extract face embeddings from a local image and store them under the given
identity name. A new image for an existing name extends the identity
instead of creating a duplicate.

Example:
  facegrep entity add --name "Jane Doe" --tag politicians ./jane.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runEntityAdd,
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog identities",
	RunE:  runEntityList,
}

var entitySearchCmd = &cobra.Command{
	Use:   "search <image-path>",
	Short: "Search a local image against the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntitySearch,
}

func init() {
	rootCmd.AddCommand(entityCmd)
	entityCmd.AddCommand(entityAddCmd)
	entityCmd.AddCommand(entityListCmd)
	entityCmd.AddCommand(entitySearchCmd)

	entityAddCmd.Flags().String("name", "", "Identity name (required)")
	entityAddCmd.Flags().StringSlice("tag", nil, "Tag for the identity (repeatable)")
	_ = entityAddCmd.MarkFlagRequired("name")

	entitySearchCmd.Flags().StringSlice("tag", nil, "Restrict the search to identities with this tag (repeatable)")
}

func runEntityAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	path := args[0]
	name := mustGetString(cmd, "name")
	tags := mustGetStringSlice(cmd, "tag")

	if err := content.VerifyImage(path); err != nil {
		return err
	}

	embedder := faces.NewEmbeddingClient(cfg.Embedding.URL)
	embeddings, err := embedder.Represent(ctx, path)
	if err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("no faces detected in %s", path)
	}

	pool, identities, _, err := openRepositories(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	identityID, err := identities.UpsertIdentity(ctx, name)
	if err != nil {
		return fmt.Errorf("could not store identity: %w", err)
	}
	for _, tag := range tags {
		if err := identities.InsertTag(ctx, identityID, tag); err != nil {
			return fmt.Errorf("could not store tag %s: %w", tag, err)
		}
	}
	for _, emb := range embeddings {
		if cfg.Embedding.Dim > 0 && len(emb.Vector) != cfg.Embedding.Dim {
			return fmt.Errorf("unexpected embedding dimension %d (want %d)", len(emb.Vector), cfg.Embedding.Dim)
		}
		if _, err := identities.InsertEmbedding(ctx, identityID, emb.Vector); err != nil {
			return fmt.Errorf("could not store embedding: %w", err)
		}
	}

	fmt.Printf("Stored %d embedding(s) for %s (identity %d)\n", len(embeddings), name, identityID)
	return nil
}

func runEntityList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	pool, identities, _, err := openRepositories(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	list, err := identities.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("could not list identities: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("The catalog is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGS\tEMBEDDINGS")
	for _, identity := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", identity.ID, identity.Name, strings.Join(identity.Tags, ","), identity.EmbeddingCount)
	}
	return w.Flush()
}

func runEntitySearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	path := args[0]
	tags := mustGetStringSlice(cmd, "tag")

	pool, identities, reports, err := openRepositories(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer pool.Close()

	embedder := faces.NewEmbeddingClient(cfg.Embedding.URL)
	pipeline := crawler.NewPipeline(nil, nil, embedder, identities, crawler.PipelineOptions{
		Tags:      tags,
		Threshold: cfg.Crawl.Threshold,
	})

	records, err := pipeline.ProcessFile(ctx, path, "upload")
	if err != nil {
		return err
	}

	rep := report.New(filepath.Base(path), tags, report.KindEntity)
	if err := persistReport(ctx, reports, rep, records); err != nil {
		return err
	}

	printRecords(rep.Records())
	fmt.Printf("Report %d stored with %d record(s)\n", rep.ID, rep.Count())
	return nil
}
