package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/terasu/internal/models"
)

func TestClientSearch(t *testing.T) {
	var gotRequest models.SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(models.SearchResponse{
			Query: gotRequest.Query,
			Results: models.ResultSet{
				{ID: "a", Name: "a.txt", Score: 2.5, Text: "alpha"},
				{ID: "b", Name: "b.txt", Score: 1.0, Text: "beta"},
			},
			Total: 2,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithLimit(25))
	results, err := client.Search(context.Background(), "alpha beta")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotRequest.Query != "alpha beta" || gotRequest.Limit != 25 {
		t.Errorf("request = %+v, want query and limit forwarded", gotRequest)
	}
	if len(results) != 2 || results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("results = %v, want server order preserved", results)
	}
}

func TestClientSearchEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.SearchResponse{Results: models.ResultSet{}})
	}))
	defer srv.Close()

	results, err := NewClient(srv.URL).Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("empty results must not be a client error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestClientSearchBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "index unavailable"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "anything")
	var backendErr *Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("got %T (%v), want *Error", err, err)
	}
	if backendErr.Message != "index unavailable" {
		t.Errorf("message = %q, want the backend message verbatim", backendErr.Message)
	}
}

// A declared error wins even on a 200 reply: the contract is carried in
// the body, not the status line.
func TestClientSearchDeclaredErrorOnOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "query rejected"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "anything")
	var backendErr *Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("got %T (%v), want *Error", err, err)
	}
	if backendErr.Message != "query rejected" {
		t.Errorf("message = %q, want %q", backendErr.Message, "query rejected")
	}
}

func TestClientSearchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error against a closed server")
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		t.Errorf("network failure classified as backend error: %v", err)
	}
	if !strings.Contains(err.Error(), "request failed") {
		t.Errorf("error = %q, want a wrapped transport failure", err)
	}
}

func TestClientSearchMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "anything")
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Errorf("error = %v, want a decode failure", err)
	}
}

func TestClientSearchPlainTextFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "anything")
	if err == nil || !strings.Contains(err.Error(), "server returned 503") {
		t.Errorf("error = %v, want the status surfaced", err)
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		t.Errorf("undeclared failure classified as backend error: %v", err)
	}
}

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/documents/doc-1":
			json.NewEncoder(w).Encode(models.Document{ID: "doc-1", Name: "one.txt", Text: "hello"})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "document not found"})
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	doc, err := client.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Name != "one.txt" || doc.Text != "hello" {
		t.Errorf("doc = %+v", doc)
	}

	_, err = client.Get(context.Background(), "missing")
	var backendErr *Error
	if !errors.As(err, &backendErr) || backendErr.Message != "document not found" {
		t.Errorf("missing document error = %v, want backend message verbatim", err)
	}
}

func TestClientAddAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/documents":
			var input models.DocumentInput
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				t.Fatalf("decode input: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.Document{ID: "assigned-id", Name: input.Name, Text: input.Text})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/documents/assigned-id":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	doc, err := client.Add(context.Background(), models.DocumentInput{Name: "new.txt", Text: "fresh"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if doc.ID != "assigned-id" || doc.Name != "new.txt" {
		t.Errorf("stored doc = %+v", doc)
	}

	if err := client.Delete(context.Background(), "assigned-id"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
