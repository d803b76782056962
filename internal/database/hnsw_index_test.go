package database

import (
	"testing"
)

func testEmbeddings() []IndexedEmbedding {
	return []IndexedEmbedding{
		{ID: 1, IdentityName: "Jane Doe", Vector: []float32{1, 0, 0, 0}},
		{ID: 2, IdentityName: "John Doe", Vector: []float32{0.9, 0.1, 0, 0}},
		{ID: 3, IdentityName: "Alice", Vector: []float32{0, 1, 0, 0}},
		{ID: 4, IdentityName: "Bob", Vector: []float32{0, 0, 1, 0}},
	}
}

func TestCatalogIndexSearch(t *testing.T) {
	idx := NewCatalogIndex()
	if err := idx.Build(testEmbeddings()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	matches, err := idx.Search([]float32{1, 0, 0, 0}, 0.3, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].IdentityName != "Jane Doe" {
		t.Errorf("expected best match Jane Doe, got %s", matches[0].IdentityName)
	}
	if matches[1].IdentityName != "John Doe" {
		t.Errorf("expected second match John Doe, got %s", matches[1].IdentityName)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches should be ordered by descending score")
	}
	for _, m := range matches {
		if m.Score <= 0.3 {
			t.Errorf("match %s has score %f, expected > threshold", m.IdentityName, m.Score)
		}
	}
}

func TestCatalogIndexThresholdFiltersAll(t *testing.T) {
	idx := NewCatalogIndex()
	if err := idx.Build(testEmbeddings()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	matches, err := idx.Search([]float32{0, 0, 0, 1}, 0.99, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches above threshold 0.99, got %d", len(matches))
	}
}

func TestCatalogIndexTieBrokenByName(t *testing.T) {
	idx := NewCatalogIndex()
	err := idx.Build([]IndexedEmbedding{
		{ID: 1, IdentityName: "Zed", Vector: []float32{1, 0}},
		{ID: 2, IdentityName: "Amy", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	matches, err := idx.Search([]float32{1, 0}, 0.3, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].IdentityName != "Amy" || matches[1].IdentityName != "Zed" {
		t.Errorf("equal scores should be ordered by name: got %s, %s",
			matches[0].IdentityName, matches[1].IdentityName)
	}
}

func TestCatalogIndexAdd(t *testing.T) {
	idx := NewCatalogIndex()
	if err := idx.Build(nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !idx.IsEmpty() {
		t.Error("expected empty index")
	}

	idx.Add(IndexedEmbedding{ID: 10, IdentityName: "Jane Doe", Vector: []float32{0, 1}})

	if idx.Count() != 1 {
		t.Fatalf("expected 1 embedding, got %d", idx.Count())
	}
	matches, err := idx.Search([]float32{0, 1}, 0.3, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].IdentityName != "Jane Doe" {
		t.Errorf("expected Jane Doe after Add, got %v", matches)
	}
}

func TestCatalogIndexSearchUninitialized(t *testing.T) {
	idx := NewCatalogIndex()
	if _, err := idx.Search([]float32{1, 0}, 0.3, 1); err == nil {
		t.Error("expected error for uninitialized index")
	}
}

func TestCatalogIndexSearchEmptyCatalog(t *testing.T) {
	idx := NewCatalogIndex()
	if err := idx.Build(nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	matches, err := idx.Search([]float32{1, 0}, 0.3, 1)
	if err != nil {
		t.Fatalf("an empty catalog must match nothing, not fail: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}
