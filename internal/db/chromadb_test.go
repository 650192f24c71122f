package db

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient points a client at a fake ChromaDB served by httptest
func newTestClient(serverURL string) *ChromaDBClient {
	c := NewChromaDBClient(ChromaDBConfig{Host: "localhost", Port: 8000})
	c.serverURL = serverURL
	c.baseURL = serverURL + "/api/v2/tenants/default_tenant/databases/default_database"
	return c
}

// TestNewChromaDBClient tests client initialization defaults
func TestNewChromaDBClient(t *testing.T) {
	tests := []struct {
		name    string
		config  ChromaDBConfig
		wantURL string
	}{
		{
			name:    "default tenant and database",
			config:  ChromaDBConfig{Host: "localhost", Port: 8000},
			wantURL: "http://localhost:8000/api/v2/tenants/default_tenant/databases/default_database",
		},
		{
			name: "custom tenant and database",
			config: ChromaDBConfig{
				Host:     "chromadb.example.com",
				Port:     9000,
				Tenant:   "custom_tenant",
				Database: "custom_db",
				Timeout:  60 * time.Second,
			},
			wantURL: "http://chromadb.example.com:9000/api/v2/tenants/custom_tenant/databases/custom_db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewChromaDBClient(tt.config)

			if client == nil {
				t.Fatal("Expected non-nil client")
			}
			if client.httpClient == nil {
				t.Error("Expected non-nil HTTP client")
			}
			if client.baseURL != tt.wantURL {
				t.Errorf("baseURL = %s, want %s", client.baseURL, tt.wantURL)
			}
		})
	}
}

func TestChromaDBClient_Heartbeat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/heartbeat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprintln(w, `{"nanosecond heartbeat": 1}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
}

func TestChromaDBClient_HeartbeatDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.Heartbeat(context.Background()); err == nil {
		t.Fatal("Expected heartbeat error, got nil")
	}
}

func TestChromaDBClient_GetOrCreateCollection(t *testing.T) {
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(Collection{ID: "col-1", Name: "aven-support-index"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	col, err := client.GetOrCreateCollection(context.Background(), "aven-support-index")
	if err != nil {
		t.Fatalf("GetOrCreateCollection failed: %v", err)
	}

	if col.ID != "col-1" {
		t.Errorf("collection ID = %s, want col-1", col.ID)
	}
	if gotPayload["get_or_create"] != true {
		t.Error("Expected get_or_create: true in payload")
	}

	// The resolved id must be cached for subsequent calls
	id, err := client.collectionID(context.Background(), "aven-support-index")
	if err != nil {
		t.Fatalf("collectionID failed: %v", err)
	}
	if id != "col-1" {
		t.Errorf("cached collection id = %s, want col-1", id)
	}
}

func TestChromaDBClient_UpsertAndQuery(t *testing.T) {
	var upsertPayload map[string]interface{}
	var queryPayload map[string]interface{}

	mux := http.NewServeMux()
	base := "/api/v2/tenants/default_tenant/databases/default_database"
	mux.HandleFunc(base+"/collections/aven-support-index", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Collection{ID: "col-1", Name: "aven-support-index"})
	})
	mux.HandleFunc(base+"/collections/col-1/upsert", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&upsertPayload); err != nil {
			t.Fatalf("failed to decode upsert payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc(base+"/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&queryPayload); err != nil {
			t.Fatalf("failed to decode query payload: %v", err)
		}
		json.NewEncoder(w).Encode(QueryResponse{
			IDs:       [][]string{{"a1"}},
			Documents: [][]string{{"Aven is a financial technology company."}},
			Metadatas: [][]map[string]interface{}{{{"title": "About Aven"}}},
			Distances: [][]float32{{0.18}},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	err := client.UpsertDocuments(ctx, "aven-support-index",
		[]string{"a1"},
		[]string{"Aven is a financial technology company."},
		[][]float32{{0.1, 0.2}},
		[]map[string]interface{}{{"title": "About Aven"}},
	)
	if err != nil {
		t.Fatalf("UpsertDocuments failed: %v", err)
	}
	if _, ok := upsertPayload["metadatas"]; !ok {
		t.Error("Expected metadatas in upsert payload")
	}

	resp, err := client.Query(ctx, "aven-support-index", []float32{0.1, 0.2}, 3, true)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(resp.IDs) != 1 || len(resp.IDs[0]) != 1 || resp.IDs[0][0] != "a1" {
		t.Errorf("unexpected query IDs: %v", resp.IDs)
	}
	if resp.Distances[0][0] != 0.18 {
		t.Errorf("distance = %f, want 0.18", resp.Distances[0][0])
	}
	if queryPayload["n_results"] != float64(3) {
		t.Errorf("n_results = %v, want 3", queryPayload["n_results"])
	}
}

func TestChromaDBClient_QueryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, `{"error": "collection not found"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Query(context.Background(), "missing", []float32{0.1}, 3, true); err == nil {
		t.Fatal("Expected error for missing collection, got nil")
	}
}
