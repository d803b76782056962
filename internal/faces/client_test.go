package faces

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// tiny valid JPEG header so MIME detection kicks in
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(path, jpegHeader, 0644); err != nil {
		t.Fatalf("could not write test image: %v", err)
	}
	return path
}

func TestRepresent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/represent" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Header.Get("Content-Type") != "image/jpeg" {
			http.Error(w, "wrong mime type", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faces": [
			{"embedding": [0.1, 0.2, 0.3], "face_confidence": 0.99},
			{"embedding": [0.4, 0.5, 0.6], "face_confidence": 0.87}
		]}`))
	}))
	defer server.Close()

	client := NewEmbeddingClient(server.URL)
	faces, err := client.Represent(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("Represent failed: %v", err)
	}

	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if len(faces[0].Vector) != 3 || faces[0].Vector[0] != 0.1 {
		t.Errorf("unexpected first embedding: %v", faces[0].Vector)
	}
	if faces[1].Confidence != 0.87 {
		t.Errorf("unexpected confidence: %f", faces[1].Confidence)
	}
}

func TestRepresentNoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faces": []}`))
	}))
	defer server.Close()

	client := NewEmbeddingClient(server.URL)
	faces, err := client.Represent(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("Represent failed: %v", err)
	}
	if faces == nil || len(faces) != 0 {
		t.Errorf("expected empty slice for zero faces, got %v", faces)
	}
}

func TestRepresentServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewEmbeddingClient(server.URL)
	path := writeTestImage(t)
	_, err := client.Represent(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for service failure")
	}

	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
	if extErr.Path != path {
		t.Errorf("expected path %s in error, got %s", path, extErr.Path)
	}
}

func TestRepresentMissingFile(t *testing.T) {
	client := NewEmbeddingClient("http://localhost:1")
	_, err := client.Represent(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("expected *ExtractionError, got %T", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x00, 0x00}, "image/gif"},
		{"short", []byte{0x01}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.want {
				t.Errorf("detectMIMEType(%s) = %s, want %s", tc.name, got, tc.want)
			}
		})
	}
}
