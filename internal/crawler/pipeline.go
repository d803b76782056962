// Package crawler runs the download-embed-match pipeline, either for a
// single item or as a bulk worker pool over an Aleph collection stream.
package crawler

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facegrep/internal/aleph"
	"github.com/kozaktomas/facegrep/internal/content"
	"github.com/kozaktomas/facegrep/internal/database"
	"github.com/kozaktomas/facegrep/internal/faces"
	"github.com/kozaktomas/facegrep/internal/report"
)

// EntityResolver fetches a single entity's metadata.
type EntityResolver interface {
	GetEntity(ctx context.Context, entityID string) (*aleph.Entity, error)
}

// Stream is a lazy sequence of entities.
type Stream interface {
	Next() (*aleph.Entity, bool)
	Err() error
	Close() error
}

// Source produces entities to crawl.
type Source interface {
	EntityResolver
	StreamEntities(ctx context.Context, collection *aleph.Collection, schema string) (Stream, error)
}

// AlephSource adapts the aleph client to the Source interface.
type AlephSource struct {
	Client *aleph.Client
}

func (s AlephSource) GetEntity(ctx context.Context, entityID string) (*aleph.Entity, error) {
	return s.Client.GetEntity(ctx, entityID)
}

func (s AlephSource) StreamEntities(ctx context.Context, collection *aleph.Collection, schema string) (Stream, error) {
	stream, err := s.Client.StreamEntities(ctx, collection, schema)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Downloader retrieves a remote file to local storage.
type Downloader interface {
	Fetch(ctx context.Context, url, fileName string) (string, string, error)
}

// Extractor computes face embeddings for a local image.
type Extractor interface {
	Represent(ctx context.Context, path string) ([]faces.Embedding, error)
}

// Matcher searches the identity catalog.
type Matcher interface {
	MatchTopK(ctx context.Context, vector []float32, tagFilter []string, threshold float64, k int) ([]database.Match, error)
}

// PipelineOptions tune a pipeline run.
type PipelineOptions struct {
	Tags      []string
	Threshold float64
	TopK      int
}

// Pipeline executes download -> embed -> match for one item at a time.
// It is stateless and safe for concurrent use by multiple workers.
type Pipeline struct {
	source    EntityResolver
	store     Downloader
	extractor Extractor
	catalog   Matcher
	tags      []string
	threshold float64
	topK      int
}

// NewPipeline creates a pipeline. The threshold is used as given, so an
// operator-configured zero or negative threshold is honored; a zero topK
// falls back to the catalog default.
func NewPipeline(source EntityResolver, store Downloader, extractor Extractor, catalog Matcher, opts PipelineOptions) *Pipeline {
	threshold := opts.Threshold
	topK := opts.TopK
	if topK == 0 {
		topK = database.DefaultTopK
	}
	return &Pipeline{
		source:    source,
		store:     store,
		extractor: extractor,
		catalog:   catalog,
		tags:      opts.Tags,
		threshold: threshold,
		topK:      topK,
	}
}

// ProcessEntity resolves a remote entity, downloads its file and matches
// every detected face against the catalog. Non-image entities fail with
// aleph.ErrNotAnImage.
func (p *Pipeline) ProcessEntity(ctx context.Context, entityID string) ([]report.Record, error) {
	entity, err := p.source.GetEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("could not resolve entity %s: %w", entityID, err)
	}
	if !entity.IsImage() {
		return nil, fmt.Errorf("entity %s has schema %s: %w", entity.ID, entity.Schema, aleph.ErrNotAnImage)
	}
	if entity.Links.File == "" {
		return nil, fmt.Errorf("entity %s has no file link", entity.ID)
	}

	path, _, err := p.store.Fetch(ctx, entity.Links.File, entity.FileName())
	if err != nil {
		return nil, err
	}

	return p.matchFile(ctx, path, entity.ID)
}

// ProcessFile matches every detected face in a local image against the
// catalog. The source label ends up on the produced records.
func (p *Pipeline) ProcessFile(ctx context.Context, path, source string) ([]report.Record, error) {
	if err := content.VerifyImage(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p.matchFile(ctx, path, source)
}

func (p *Pipeline) matchFile(ctx context.Context, path, source string) ([]report.Record, error) {
	embeddings, err := p.extractor.Represent(ctx, path)
	if err != nil {
		return nil, err
	}

	var records []report.Record
	for _, emb := range embeddings {
		matches, err := p.catalog.MatchTopK(ctx, emb.Vector, p.tags, p.threshold, p.topK)
		if err != nil {
			return nil, fmt.Errorf("could not match %s: %w", path, err)
		}
		for _, m := range matches {
			records = append(records, report.Record{
				FilePath:     path,
				Source:       source,
				IdentityName: m.IdentityName,
				Score:        m.Score,
			})
		}
	}
	return records, nil
}
