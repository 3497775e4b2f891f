package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSupabaseStorageUploadAndDelete(t *testing.T) {
	var (
		uploadedPath string
		uploadedBody string
		authHeader   string
		deletedPath  string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			uploadedPath = r.URL.Path
			authHeader = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			uploadedBody = string(body)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			deletedPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	storage := NewSupabaseStorage(server.URL+"/", "proofs", "service-key", time.Second)
	url, err := storage.Upload(context.Background(), "/payments/abc/proof.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if uploadedPath != "/storage/v1/object/proofs/payments/abc/proof.png" {
		t.Fatalf("unexpected upload path %q", uploadedPath)
	}
	if uploadedBody != "png-bytes" {
		t.Fatalf("unexpected upload body %q", uploadedBody)
	}
	if authHeader != "Bearer service-key" {
		t.Fatalf("unexpected authorization header %q", authHeader)
	}
	expectedURL := server.URL + "/storage/v1/object/public/proofs/payments/abc/proof.png"
	if url != expectedURL {
		t.Fatalf("expected %q, got %q", expectedURL, url)
	}

	if err := storage.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deletedPath != "/storage/v1/object/proofs/payments/abc/proof.png" {
		t.Fatalf("unexpected delete path %q", deletedPath)
	}
}

func TestSupabaseStorageReportsUploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusBadRequest)
	}))
	defer server.Close()

	storage := NewSupabaseStorage(server.URL, "proofs", "service-key", time.Second)
	if _, err := storage.Upload(context.Background(), "payments/proof.png", []byte("x"), "image/png"); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestSupabaseStorageDeleteIgnoresMissingObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	storage := NewSupabaseStorage(server.URL, "proofs", "service-key", time.Second)
	if err := storage.Delete(context.Background(), server.URL+"/storage/v1/object/public/proofs/gone.png"); err != nil {
		t.Fatalf("expected missing object to be ignored, got %v", err)
	}
	if err := storage.Delete(context.Background(), "https://elsewhere.example.com/file.png"); err == nil {
		t.Fatal("expected foreign url to be rejected")
	}
}
