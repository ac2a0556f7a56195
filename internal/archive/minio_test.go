package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"mdm-platform/feedhub/internal/config"
)

func TestNewMinioArchiver_Disabled(t *testing.T) {
	_, err := NewMinioArchiver(config.ArchiveConfig{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}

	_, err = NewMinioArchiver(config.ArchiveConfig{Endpoint: "localhost:9000", Bucket: "feeds"})
	if err == nil {
		t.Error("Expected error for missing credentials")
	}
}

func TestMinioArchiver_Archive(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
		ctype  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body, ctype = r.Method, r.URL.Path, string(data), r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := NewMinioArchiver(config.ArchiveConfig{
		Endpoint:  srv.URL,
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "feeds",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	feed := "sku,name\nA1,Widget\n"
	err = a.Archive(context.Background(), "sup1/imp1/products.csv", strings.NewReader(feed), int64(len(feed)), "text/csv")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("Expected PUT, got %s", method)
	}
	if path != "/feeds/imports/sup1/imp1/products.csv" {
		t.Errorf("Expected path-style object URL, got %s", path)
	}
	if !strings.Contains(body, "A1,Widget") {
		t.Errorf("Expected uploaded feed body, got %q", body)
	}
	if ctype != "text/csv" {
		t.Errorf("Expected content type text/csv, got %s", ctype)
	}
}

func TestMinioArchiver_ObjectKey(t *testing.T) {
	a := &MinioArchiver{prefix: "imports"}
	if got := a.ObjectKey("/s/i/f.csv"); got != "imports/s/i/f.csv" {
		t.Errorf("Expected imports/s/i/f.csv, got %s", got)
	}
}
