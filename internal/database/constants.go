package database

const (
	// EmbeddingDim is the fixed catalog dimension (VGG-Face).
	EmbeddingDim = 4096

	// DefaultThreshold is the minimum cosine similarity for a match.
	DefaultThreshold = 0.3

	// DefaultTopK is the number of matches taken per probe embedding.
	DefaultTopK = 1

	// HNSWMaxNeighbors is the M parameter for the in-memory HNSW graph.
	HNSWMaxNeighbors = 16

	// HNSWSearchMultiplier oversamples HNSW candidates before threshold
	// filtering so k survivors remain.
	HNSWSearchMultiplier = 4
)
