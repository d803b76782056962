package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/facegrep/internal/database"
)

// IdentityRepository provides PostgreSQL-backed storage for the identity
// catalog with an optional in-memory HNSW index for untagged searches.
type IdentityRepository struct {
	pool        *Pool
	hnswIndex   *database.CatalogIndex
	hnswEnabled bool
	hnswMu      sync.RWMutex
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// UpsertIdentity inserts an identity by name or returns the existing id.
func (r *IdentityRepository) UpsertIdentity(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO identities (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	var id int64
	if err := r.pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: upsert identity %q: %v", database.ErrCatalogUnavailable, name, err)
	}
	return id, nil
}

// InsertTag stores a tag for an identity. A duplicate tag is a no-op.
func (r *IdentityRepository) InsertTag(ctx context.Context, identityID int64, name string) error {
	query := `
		INSERT INTO tags (identity_id, name) VALUES ($1, $2)
		ON CONFLICT (identity_id, name) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, identityID, name); err != nil {
		return fmt.Errorf("%w: insert tag %q: %v", database.ErrCatalogUnavailable, name, err)
	}
	return nil
}

// InsertEmbedding appends one immutable embedding row and returns its id.
// Embeddings are never updated, only inserted.
func (r *IdentityRepository) InsertEmbedding(ctx context.Context, identityID int64, vector []float32) (int64, error) {
	query := `
		INSERT INTO embeddings (identity_id, embedding) VALUES ($1, $2::vector)
		RETURNING id
	`

	var id int64
	vec := pgvector.NewVector(vector)
	if err := r.pool.QueryRow(ctx, query, identityID, vec).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: insert embedding: %v", database.ErrCatalogUnavailable, err)
	}

	// Insert-through so searches during the same run see the new row.
	r.hnswMu.RLock()
	enabled := r.hnswEnabled && r.hnswIndex != nil
	r.hnswMu.RUnlock()
	if enabled {
		var name string
		if err := r.pool.QueryRow(ctx, "SELECT name FROM identities WHERE id = $1", identityID).Scan(&name); err == nil {
			r.hnswIndex.Add(database.IndexedEmbedding{ID: id, IdentityName: name, Vector: vector})
		}
	}

	return id, nil
}

// MatchTopK returns up to k matches with cosine similarity above threshold,
// ordered by descending score then ascending identity name. Results are
// computed fresh per query; the catalog may be mutated concurrently by
// ingestion.
func (r *IdentityRepository) MatchTopK(ctx context.Context, vector []float32, tagFilter []string, threshold float64, k int) ([]database.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	// The in-memory index only covers untagged searches; the tag join
	// lives in the database.
	r.hnswMu.RLock()
	enabled := r.hnswEnabled && r.hnswIndex != nil
	r.hnswMu.RUnlock()
	if enabled && len(tagFilter) == 0 {
		return r.hnswIndex.Search(vector, threshold, k)
	}

	if len(tagFilter) > 0 {
		return r.matchTagged(ctx, vector, tagFilter, threshold, k)
	}
	return r.matchAll(ctx, vector, threshold, k)
}

func (r *IdentityRepository) matchAll(ctx context.Context, vector []float32, threshold float64, k int) ([]database.Match, error) {
	query := `
		SELECT i.name, 1 - (e.embedding <=> $1::vector) AS score
		FROM embeddings e
		JOIN identities i ON i.id = e.identity_id
		WHERE 1 - (e.embedding <=> $1::vector) > $2
		ORDER BY score DESC, i.name ASC
		LIMIT $3
	`

	vec := pgvector.NewVector(vector)
	rows, err := r.pool.Query(ctx, query, vec, threshold, k)
	if err != nil {
		return nil, fmt.Errorf("%w: match query: %v", database.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

func (r *IdentityRepository) matchTagged(ctx context.Context, vector []float32, tagFilter []string, threshold float64, k int) ([]database.Match, error) {
	query := `
		SELECT i.name, 1 - (e.embedding <=> $1::vector) AS score
		FROM embeddings e
		JOIN identities i ON i.id = e.identity_id
		WHERE EXISTS (
			SELECT 1 FROM tags t
			WHERE t.identity_id = i.id AND t.name = ANY($2)
		)
		AND 1 - (e.embedding <=> $1::vector) > $3
		ORDER BY score DESC, i.name ASC
		LIMIT $4
	`

	vec := pgvector.NewVector(vector)
	rows, err := r.pool.Query(ctx, query, vec, pq.Array(tagFilter), threshold, k)
	if err != nil {
		return nil, fmt.Errorf("%w: tagged match query: %v", database.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]database.Match, error) {
	var matches []database.Match
	for rows.Next() {
		var m database.Match
		if err := rows.Scan(&m.IdentityName, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// ListIdentities returns all identities with tags and embedding counts,
// ordered by name.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	query := `
		SELECT i.id,
		       i.name,
		       i.created_at,
		       COUNT(e.id) AS embedding_count,
		       COALESCE(array_agg(DISTINCT t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tags
		FROM identities i
		LEFT JOIN embeddings e ON e.identity_id = i.id
		LEFT JOIN tags t ON t.identity_id = i.id
		GROUP BY i.id, i.name, i.created_at
		ORDER BY i.name ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list identities: %v", database.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		var ident database.Identity
		if err := rows.Scan(&ident.ID, &ident.Name, &ident.CreatedAt, &ident.EmbeddingCount, pq.Array(&ident.Tags)); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// getAllIndexedEmbeddings loads every embedding row with its identity name.
func (r *IdentityRepository) getAllIndexedEmbeddings(ctx context.Context) ([]database.IndexedEmbedding, error) {
	query := `
		SELECT e.id, i.name, e.embedding
		FROM embeddings e
		JOIN identities i ON i.id = e.identity_id
		ORDER BY e.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embeddings for index: %w", err)
	}
	defer rows.Close()

	var embeddings []database.IndexedEmbedding
	for rows.Next() {
		var emb database.IndexedEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&emb.ID, &emb.IdentityName, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		emb.Vector = vec.Slice()
		embeddings = append(embeddings, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return embeddings, nil
}

// EnableHNSW builds the in-memory index from the current catalog. Should be
// called once at startup; safe to skip, searches then go to PostgreSQL.
func (r *IdentityRepository) EnableHNSW(ctx context.Context) error {
	embeddings, err := r.getAllIndexedEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load embeddings: %w", err)
	}

	idx := database.NewCatalogIndex()
	if err := idx.Build(embeddings); err != nil {
		return fmt.Errorf("failed to build HNSW catalog index: %w", err)
	}

	r.hnswMu.Lock()
	r.hnswIndex = idx
	r.hnswEnabled = true
	r.hnswMu.Unlock()
	return nil
}

// IsHNSWEnabled returns whether the in-memory index is active.
func (r *IdentityRepository) IsHNSWEnabled() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

// Verify interface compliance
var _ database.Catalog = (*IdentityRepository)(nil)
