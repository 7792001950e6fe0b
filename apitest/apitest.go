// Package apitest provides test helpers for serving and writing schema
// documents.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"gopkg.in/yaml.v3"
)

// SchemaServer serves one schema document over HTTP and counts requests.
type SchemaServer struct {
	Server *httptest.Server

	hits atomic.Int64
}

// NewSchemaServer starts a server publishing raw at /openapi.json and
// /openapi.yaml. It is closed when the test ends.
func NewSchemaServer(t testing.TB, raw map[string]any) *SchemaServer {
	t.Helper()

	jsonDoc, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("apitest: marshal schema json: %v", err)
	}
	yamlDoc, err := yaml.Marshal(raw)
	if err != nil {
		t.Fatalf("apitest: marshal schema yaml: %v", err)
	}

	s := &SchemaServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(jsonDoc)
	})
	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(yamlDoc)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// URL returns the absolute URL for path on the server.
func (s *SchemaServer) URL(path string) string {
	return s.Server.URL + path
}

// Hits returns the number of documents served so far.
func (s *SchemaServer) Hits() int64 {
	return s.hits.Load()
}

// WriteSchema writes raw into dir/name and returns the file path. Names
// ending in .yaml or .yml are written as YAML, anything else as JSON.
func WriteSchema(t testing.TB, dir, name string, raw map[string]any) string {
	t.Helper()

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(raw)
	default:
		data, err = json.MarshalIndent(raw, "", "  ")
	}
	if err != nil {
		t.Fatalf("apitest: marshal schema: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("apitest: write schema: %v", err)
	}
	return path
}
