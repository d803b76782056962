package aleph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func setupMockServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/2/entities/ent-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "ApiKey test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "ent-1",
			"schema": "Image",
			"properties": {"fileName": ["photo.jpg"]},
			"links": {"file": "https://files.example.org/photo.jpg"}
		}`))
	})

	mux.HandleFunc("/api/2/entities/ent-2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "ent-2", "schema": "Pages", "properties": {}}`))
	})

	mux.HandleFunc("/api/2/collections", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"id": "5", "foreign_id": "test_leak", "label": "Test Leak"}]}`))
	})

	mux.HandleFunc("/api/2/entities/_stream", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("collection_id") != "5" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "ent-1", "schema": "Image", "properties": {"fileName": ["a.jpg"]}}` + "\n"))
		w.Write([]byte(`{"id": "ent-3", "schema": "Image", "properties": {"fileName": ["b.jpg"]}}` + "\n"))
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(serverURL, "test-key")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestGetEntity(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	entity, err := client.GetEntity(context.Background(), "ent-1")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}

	if entity.ID != "ent-1" {
		t.Errorf("expected id ent-1, got %s", entity.ID)
	}
	if !entity.IsImage() {
		t.Error("expected entity to be an image")
	}
	if entity.FileName() != "photo.jpg" {
		t.Errorf("expected fileName photo.jpg, got %s", entity.FileName())
	}
	if entity.Links.File != "https://files.example.org/photo.jpg" {
		t.Errorf("unexpected file link %s", entity.Links.File)
	}
}

func TestGetEntityNonImage(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	entity, err := client.GetEntity(context.Background(), "ent-2")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if entity.IsImage() {
		t.Error("Pages entity should not be an image")
	}
	if entity.FileName() != "ent-2" {
		t.Errorf("expected fallback to entity id, got %s", entity.FileName())
	}
}

func TestGetEntityNotFound(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.GetEntity(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing entity")
	}
}

func TestLoadCollectionByForeignID(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	col, err := client.LoadCollectionByForeignID(context.Background(), "test_leak")
	if err != nil {
		t.Fatalf("LoadCollectionByForeignID failed: %v", err)
	}
	if col.ID != "5" {
		t.Errorf("expected collection id 5, got %s", col.ID)
	}

	if _, err := client.LoadCollectionByForeignID(context.Background(), "unknown"); err == nil {
		t.Error("expected error for unknown foreign id")
	}
}

func TestStreamEntities(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	stream, err := client.StreamEntities(context.Background(), &Collection{ID: "5"}, SchemaImage)
	if err != nil {
		t.Fatalf("StreamEntities failed: %v", err)
	}
	defer stream.Close()

	var ids []string
	for {
		entity, ok := stream.Next()
		if !ok {
			break
		}
		ids = append(ids, entity.ID)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	if len(ids) != 2 || ids[0] != "ent-1" || ids[1] != "ent-3" {
		t.Errorf("unexpected stream contents: %v", ids)
	}
}

func TestStreamEntitiesFailure(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.StreamEntities(context.Background(), &Collection{ID: "missing"}, SchemaImage)
	if err == nil {
		t.Fatal("expected stream error for unknown collection")
	}

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Errorf("expected *StreamError, got %T", err)
	}
}

func TestStreamEntitiesDecodeFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2/entities/_stream", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "ent-1", "schema": "Image"}` + "\n"))
		w.Write([]byte("this is not json\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	stream, err := client.StreamEntities(context.Background(), &Collection{ID: "5"}, SchemaImage)
	if err != nil {
		t.Fatalf("StreamEntities failed: %v", err)
	}
	defer stream.Close()

	if _, ok := stream.Next(); !ok {
		t.Fatal("expected first entity to decode")
	}
	if _, ok := stream.Next(); ok {
		t.Fatal("expected second line to fail")
	}
	if stream.Err() == nil {
		t.Error("expected stream error after bad line")
	}
}
