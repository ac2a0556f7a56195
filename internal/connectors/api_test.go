package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"mdm-platform/feedhub/internal/credentials"
)

func decodeRecords(t *testing.T, p *Payload) []map[string]any {
	t.Helper()
	defer p.Body.Close()

	data, err := io.ReadAll(p.Body)
	if err != nil {
		t.Fatalf("Failed to read payload: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("Payload is not a JSON array: %v", err)
	}
	return records
}

func TestAPIConnector_FetchOffsetPagination(t *testing.T) {
	const total = 5
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		items := []map[string]any{}
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, map[string]any{"sku": fmt.Sprintf("SKU-%d", i)})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items, "total": total})
	}))
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{
		BaseURL:     server.URL,
		Endpoint:    "/products",
		AuthType:    credentials.AuthToken,
		AccessToken: "tok-1",
		Pagination:  credentials.Pagination{Type: credentials.PaginationOffset, PageSize: 2},
	}, DefaultOptions())

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	payload, err := conn.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if payload.Format != "json" {
		t.Errorf("Expected json format, got %s", payload.Format)
	}

	records := decodeRecords(t, payload)
	if len(records) != total {
		t.Fatalf("Expected %d records, got %d", total, len(records))
	}
	if records[4]["sku"] != "SKU-4" {
		t.Errorf("Expected SKU-4 last, got %v", records[4]["sku"])
	}
}

func TestAPIConnector_PagePaginationAndRecordsPath(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if r.URL.Query().Get("per_page") != "1" {
			t.Errorf("Expected per_page=1, got %s", r.URL.Query().Get("per_page"))
		}
		if page == "1" {
			fmt.Fprint(w, `{"payload":{"rows":[{"sku":"P1"}]}}`)
			return
		}
		fmt.Fprint(w, `{"payload":{"rows":[]}}`)
	}))
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{
		BaseURL:     server.URL,
		AuthType:    credentials.AuthNone,
		RecordsPath: "payload.rows",
		Pagination:  credentials.Pagination{Type: credentials.PaginationPage, PageSize: 1},
	}, DefaultOptions())

	payload, err := conn.Fetch(context.Background(), "feed")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	records := decodeRecords(t, payload)
	if len(records) != 1 || records[0]["sku"] != "P1" {
		t.Errorf("Expected one P1 record, got %v", records)
	}
	if len(pages) != 2 {
		t.Errorf("Expected 2 page requests, got %v", pages)
	}
}

func TestAPIConnector_OAuthClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "client_credentials" || r.Form.Get("client_secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"issued","token_type":"bearer"}`)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer issued" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `[{"sku":"O1"},{"sku":"O2"}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{
		BaseURL:   server.URL,
		Endpoint:  "data",
		AuthType:  credentials.AuthOAuth,
		TokenURL:  server.URL + "/oauth/token",
		ClientID:  "client",
		SecretKey: "s3cret",
	}, DefaultOptions())

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Expected token fetch to succeed, got %v", err)
	}
	payload, err := conn.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := len(decodeRecords(t, payload)); got != 2 {
		t.Errorf("Expected 2 records, got %d", got)
	}
}

func TestAPIConnector_ProbeFallsBackToGet(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{BaseURL: server.URL, AuthType: credentials.AuthNone}, DefaultOptions())
	res := TestConnection(context.Background(), conn, 0)

	if !res.Success {
		t.Fatalf("Expected success, got %+v", res)
	}
	if len(methods) != 2 || methods[1] != http.MethodGet {
		t.Errorf("Expected HEAD then GET, got %v", methods)
	}
}

func TestAPIConnector_AuthFailureIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{BaseURL: server.URL, AuthType: credentials.AuthNone}, DefaultOptions())
	res := TestConnection(context.Background(), conn, 0)

	if res.Success {
		t.Fatal("Expected failure")
	}
	if res.Code != "AUTHENTICATION_FAILED" {
		t.Errorf("Expected AUTHENTICATION_FAILED, got %s", res.Code)
	}
}

// offsetFeed serves total items with limit/offset paging and counts requests
func offsetFeed(total int, requests *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			*requests++
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		items := []map[string]any{}
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, map[string]any{"sku": fmt.Sprintf("SKU-%d", i)})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
}

func TestAPIConnector_FullPullHasNoPageCap(t *testing.T) {
	server := offsetFeed(6000, nil)
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{
		BaseURL:    server.URL,
		Pagination: credentials.Pagination{Type: credentials.PaginationOffset, PageSize: 100},
	}, DefaultOptions())

	payload, err := conn.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if payload.Truncated {
		t.Error("Expected an exhausted feed not to be truncated")
	}
	if records := decodeRecords(t, payload); len(records) != 6000 {
		t.Errorf("Expected 6000 records, got %d", len(records))
	}
}

func TestAPIConnector_ConfiguredPageCapMarksTruncation(t *testing.T) {
	server := offsetFeed(50, nil)
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{
		BaseURL:    server.URL,
		Pagination: credentials.Pagination{Type: credentials.PaginationOffset, PageSize: 10, MaxPages: 2},
	}, DefaultOptions())

	payload, err := conn.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !payload.Truncated {
		t.Error("Expected payload to be marked truncated")
	}
	if records := decodeRecords(t, payload); len(records) != 20 {
		t.Errorf("Expected 20 records, got %d", len(records))
	}
}

func TestAPIConnector_MaxRecordsStopsEarly(t *testing.T) {
	var requests int
	server := offsetFeed(1000, &requests)
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{
		BaseURL:    server.URL,
		Pagination: credentials.Pagination{Type: credentials.PaginationOffset, PageSize: 10},
	}, Options{MaxRecords: 15})

	payload, err := conn.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if records := decodeRecords(t, payload); len(records) != 15 {
		t.Errorf("Expected 15 records, got %d", len(records))
	}
	if requests != 2 {
		t.Errorf("Expected 2 page requests, got %d", requests)
	}
}

func TestAPIConnector_StopsWhenPagingIsIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"sku": "A"}, {"sku": "B"}})
	}))
	defer server.Close()

	conn := NewAPIConnector(&credentials.APICredentials{
		BaseURL:    server.URL,
		Pagination: credentials.Pagination{Type: credentials.PaginationPage, PageSize: 2},
	}, DefaultOptions())

	payload, err := conn.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if records := decodeRecords(t, payload); len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
}
