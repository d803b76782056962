package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// CatalogIndex is an optional in-memory HNSW index over the identity
// catalog, keyed by embedding row id. It accelerates untagged searches;
// tag-filtered queries always go to the database where the join lives.
// Candidates are re-scored with exact cosine similarity so results match
// the database path bit for bit.
type CatalogIndex struct {
	graph   *hnsw.Graph[int64]
	idToEmb map[int64]*IndexedEmbedding
	built   bool
	mu      sync.RWMutex
}

// NewCatalogIndex creates a new empty catalog index.
func NewCatalogIndex() *CatalogIndex {
	return &CatalogIndex{
		idToEmb: make(map[int64]*IndexedEmbedding),
	}
}

// Build replaces the index contents with the given embeddings.
func (h *CatalogIndex) Build(embeddings []IndexedEmbedding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.built = true

	if len(embeddings) == 0 {
		h.graph = nil
		h.idToEmb = make(map[int64]*IndexedEmbedding)
		return nil
	}

	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	h.idToEmb = make(map[int64]*IndexedEmbedding, len(embeddings))

	for i := range embeddings {
		emb := &embeddings[i]
		if len(emb.Vector) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(emb.ID, emb.Vector))
		h.idToEmb[emb.ID] = emb
	}

	h.graph = g
	return nil
}

// Add inserts a single embedding into a built index. Ingestion calls this
// so searches during the same run see the new row.
func (h *CatalogIndex) Add(emb IndexedEmbedding) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(emb.Vector) == 0 {
		return
	}
	if h.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = HNSWMaxNeighbors
		g.Ml = 1.0 / float64(HNSWMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		h.graph = g
	}
	h.built = true
	h.graph.Add(hnsw.MakeNode(emb.ID, emb.Vector))
	h.idToEmb[emb.ID] = &emb
}

// Search returns up to k matches with exact cosine similarity > threshold,
// ordered by descending score then ascending identity name.
func (h *CatalogIndex) Search(query []float32, threshold float64, k int) ([]Match, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.built {
		return nil, errors.New("index not initialized")
	}
	// A built index over an empty catalog matches nothing, same as the
	// database path.
	if h.graph == nil || k <= 0 {
		return nil, nil
	}

	// Oversample so threshold filtering still leaves k survivors.
	searchK := max(k*HNSWSearchMultiplier, 100)

	neighbors := h.graph.Search(query, searchK)

	matches := make([]Match, 0, k)
	for _, n := range neighbors {
		emb, ok := h.idToEmb[n.Key]
		if !ok {
			continue
		}
		score := CosineSimilarity(query, emb.Vector)
		if score > threshold {
			matches = append(matches, Match{IdentityName: emb.IdentityName, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].IdentityName < matches[j].IdentityName
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of indexed embeddings.
func (h *CatalogIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToEmb)
}

// IsEmpty reports whether the index holds no embeddings.
func (h *CatalogIndex) IsEmpty() bool {
	return h.Count() == 0
}
