package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/terasu/internal/backend"
	"github.com/hyperjump/terasu/internal/config"
	"github.com/hyperjump/terasu/internal/corpus"
	"github.com/hyperjump/terasu/internal/extract"
	"github.com/hyperjump/terasu/internal/highlight"
	"github.com/hyperjump/terasu/internal/index"
	"github.com/hyperjump/terasu/internal/models"
	"github.com/hyperjump/terasu/internal/query"
	"github.com/hyperjump/terasu/internal/server"
	"github.com/hyperjump/terasu/internal/session"
)

const e2eSearchLimit = 30

// newSearchServer wires a store, an in-memory index, and an ingestor
// behind the real HTTP handler and returns a test server for it.
func newSearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := corpus.NewStore()
	idx, err := index.NewMemIndex()
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	ingestor := corpus.NewIngestor(store, idx, extract.NewExtractor(), nil)
	srv := server.NewServer(store, ingestor, idx, &config.ServerConfig{Host: "127.0.0.1", Port: 0}, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestE2E_SearchReturnsExpectedDocuments(t *testing.T) {
	ts := newSearchServer(t)
	client := backend.NewClient(ts.URL, backend.WithLimit(e2eSearchLimit))
	ctx := context.Background()

	corp := BuildCorpus()
	if corp.TotalDocs == 0 {
		t.Fatal("corpus has no documents")
	}
	if corp.TotalQueries == 0 {
		t.Fatal("corpus has no query test cases")
	}

	// The server assigns IDs on submission; remember which one each
	// corpus document received.
	assigned := make(map[string]string, corp.TotalDocs)
	for i, input := range corp.ToDocumentInputs() {
		doc, err := client.Add(ctx, *input)
		if err != nil {
			t.Fatalf("add document %q: %v", corp.Documents[i].ID, err)
		}
		assigned[corp.Documents[i].ID] = doc.ID
	}

	t.Logf("submitted %d documents; running %d query test cases", corp.TotalDocs, corp.TotalQueries)

	for _, tc := range corp.TestCases {
		tc := tc
		t.Run(tc.Description, func(t *testing.T) {
			results, err := client.Search(ctx, tc.Query)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			gotIDs := make([]string, len(results))
			for i, d := range results {
				gotIDs[i] = d.ID
			}
			wantIDs := make([]string, 0, len(tc.ExpectedDocIDs))
			for _, id := range tc.ExpectedDocIDs {
				wantIDs = append(wantIDs, assigned[id])
			}
			if !containsAny(gotIDs, wantIDs) {
				t.Errorf("query %q: expected at least one of %v in results, got %d results (ids: %v)",
					tc.Query, wantIDs, len(gotIDs), gotIDs)
			}
		})
	}
}

// TestE2E_FileIngestionSearch writes corpus documents as real files of all
// supported types, ingests the directory, and runs the query test cases
// against the resulting index. Document names are the file base names, so
// corpus IDs are recovered by stripping the extension.
func TestE2E_FileIngestionSearch(t *testing.T) {
	docDir := filepath.Join(t.TempDir(), "docs")
	if err := os.MkdirAll(docDir, 0755); err != nil {
		t.Fatal(err)
	}

	corp := BuildCorpus()
	exts := SupportedFileExtensions
	written := make(map[string]bool)
	nFiles := 0
	for i, d := range corp.Documents {
		if nFiles >= 40 {
			break
		}
		ext := exts[i%len(exts)]
		path := filepath.Join(docDir, d.ID+ext)
		content := d.Name + "\n\n" + d.Text
		fileBytes, err := MinimalFileBytes(ext, content)
		if err != nil {
			t.Fatalf("build file %s: %v", path, err)
		}
		if err := os.WriteFile(path, fileBytes, 0644); err != nil {
			t.Fatalf("write file %s: %v", path, err)
		}
		written[d.ID] = true
		nFiles++
	}

	store := corpus.NewStore()
	idx, err := index.NewMemIndex()
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	defer idx.Close()
	ingestor := corpus.NewIngestor(store, idx, extract.NewExtractor(), nil)
	ctx := context.Background()

	n, err := ingestor.IngestDirectory(ctx, docDir)
	if err != nil {
		t.Fatalf("ingest directory: %v", err)
	}
	if n != nFiles {
		t.Fatalf("expected %d files ingested, got %d", nFiles, n)
	}

	t.Logf("ingested %d files from %s; running query test cases for docs written as files", n, docDir)

	var run int
	for _, tc := range corp.TestCases {
		expected := make([]string, 0, len(tc.ExpectedDocIDs))
		for _, id := range tc.ExpectedDocIDs {
			if written[id] {
				expected = append(expected, id)
			}
		}
		if len(expected) == 0 {
			continue
		}
		run++
		tc := tc
		t.Run(tc.Description, func(t *testing.T) {
			hits, err := idx.Search(ctx, tc.Query, e2eSearchLimit)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			gotIDs := make([]string, 0, len(hits))
			for _, h := range hits {
				doc, ok := store.Get(h.ID)
				if !ok {
					t.Fatalf("hit %q not in store", h.ID)
				}
				gotIDs = append(gotIDs, strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name)))
			}
			if !containsAny(gotIDs, expected) {
				t.Errorf("query %q: expected at least one of %v in results, got %d results (ids: %v)",
					tc.Query, expected, len(gotIDs), gotIDs)
			}
		})
	}
	if run == 0 {
		t.Fatal("no query test cases matched the file-based corpus")
	}
	t.Logf("ran %d query test cases for file-based ingestion", run)
}

// TestE2E_SessionSearchAndHighlight drives a full search through the
// session and highlights the opened document: the query terms come back
// as separate matched spans and the rest of the text stays plain.
func TestE2E_SessionSearchAndHighlight(t *testing.T) {
	ts := newSearchServer(t)
	client := backend.NewClient(ts.URL, backend.WithLimit(e2eSearchLimit))
	ctx := context.Background()

	ml, err := client.Add(ctx, models.DocumentInput{
		Name: "Machine Learning",
		Text: "Machine Learning is a subset of AI.",
	})
	if err != nil {
		t.Fatalf("add document: %v", err)
	}
	for _, input := range []models.DocumentInput{
		{Name: "Gardening", Text: "Tomatoes ripen late in cool summers."},
		{Name: "Astronomy", Text: "Neutron stars spin hundreds of times per second."},
	} {
		if _, err := client.Add(ctx, input); err != nil {
			t.Fatalf("add document: %v", err)
		}
	}

	sess := session.New(client)
	sess.Submit(ctx, "machine learning")
	snap := waitSettled(t, sess)
	if snap.Phase != session.PhaseResults {
		t.Fatalf("phase = %v, want results (message %q)", snap.Phase, snap.Message)
	}

	selected := -1
	for i, d := range snap.Results {
		if d.ID == ml.ID {
			selected = i
		}
	}
	if selected < 0 {
		t.Fatalf("document %q not in results", ml.ID)
	}
	if err := sess.Select(selected); err != nil {
		t.Fatalf("select result %d: %v", selected, err)
	}
	snap = sess.Snapshot()
	if snap.Selected == nil {
		t.Fatal("no document selected")
	}

	matcher := highlight.NewMatcher(query.Tokenize(snap.Query))
	seg := matcher.Segment(snap.Selected.Text)
	want := highlight.Segmentation{
		{Text: "Machine", Matched: true},
		{Text: " ", Matched: false},
		{Text: "Learning", Matched: true},
		{Text: " is a subset of AI.", Matched: false},
	}
	if len(seg) != len(want) {
		t.Fatalf("got %d spans, want %d: %#v", len(seg), len(want), seg)
	}
	for i := range want {
		if seg[i] != want[i] {
			t.Errorf("span %d = %#v, want %#v", i, seg[i], want[i])
		}
	}
	if seg.Text() != snap.Selected.Text {
		t.Error("segmentation does not reassemble the document text")
	}

	sess.ClearSelection()
	snap = sess.Snapshot()
	if snap.Selected != nil {
		t.Error("selection still set after clear")
	}
	if snap.Phase != session.PhaseResults {
		t.Errorf("phase = %v after clearing selection, want results", snap.Phase)
	}
}

// slowBackend delays chosen queries so their responses arrive after
// later submissions have already settled.
type slowBackend struct {
	inner  session.Backend
	delays map[string]time.Duration
}

func (b slowBackend) Search(ctx context.Context, q string) (models.ResultSet, error) {
	if d, ok := b.delays[q]; ok {
		time.Sleep(d)
	}
	return b.inner.Search(ctx, q)
}

func TestE2E_LastSubmissionWins(t *testing.T) {
	ts := newSearchServer(t)
	client := backend.NewClient(ts.URL, backend.WithLimit(e2eSearchLimit))
	ctx := context.Background()

	alpha, err := client.Add(ctx, models.DocumentInput{Name: "Alpha", Text: "The alpha rocket launches at dawn."})
	if err != nil {
		t.Fatalf("add document: %v", err)
	}
	beta, err := client.Add(ctx, models.DocumentInput{Name: "Beta", Text: "The beta engine burns methane."})
	if err != nil {
		t.Fatalf("add document: %v", err)
	}

	sess := session.New(slowBackend{
		inner:  client,
		delays: map[string]time.Duration{"alpha rocket": 300 * time.Millisecond},
	})

	sess.Submit(ctx, "alpha rocket")
	sess.Submit(ctx, "beta engine")

	snap := waitSettled(t, sess)
	if snap.Phase != session.PhaseResults {
		t.Fatalf("phase = %v, want results (message %q)", snap.Phase, snap.Message)
	}
	if snap.Query != "beta engine" {
		t.Fatalf("query = %q, want %q", snap.Query, "beta engine")
	}

	// Let the superseded response arrive; it must be discarded.
	time.Sleep(500 * time.Millisecond)
	snap = sess.Snapshot()
	if snap.Query != "beta engine" {
		t.Errorf("query = %q after stale response, want %q", snap.Query, "beta engine")
	}
	if snap.Phase != session.PhaseResults {
		t.Errorf("phase = %v after stale response, want results", snap.Phase)
	}
	ids := make([]string, len(snap.Results))
	for i, d := range snap.Results {
		ids[i] = d.ID
	}
	if !containsAny(ids, []string{beta.ID}) {
		t.Errorf("results %v do not include %q", ids, beta.ID)
	}
	if containsAny(ids, []string{alpha.ID}) {
		t.Errorf("results %v include the superseded document %q", ids, alpha.ID)
	}
}

func TestE2E_SessionErrorStates(t *testing.T) {
	ts := newSearchServer(t)
	client := backend.NewClient(ts.URL, backend.WithLimit(e2eSearchLimit))
	ctx := context.Background()

	if _, err := client.Add(ctx, models.DocumentInput{Name: "Note", Text: "An ordinary note about nothing special."}); err != nil {
		t.Fatalf("add document: %v", err)
	}

	sess := session.New(client)

	// Blank queries settle locally, so no waiting is needed.
	sess.Submit(ctx, "   \t ")
	snap := sess.Snapshot()
	if snap.Phase != session.PhaseError || snap.Message != session.EmptyQueryMessage {
		t.Fatalf("blank submit: phase %v message %q, want error %q", snap.Phase, snap.Message, session.EmptyQueryMessage)
	}

	sess.Submit(ctx, "xyzzy quux")
	snap = waitSettled(t, sess)
	if snap.Phase != session.PhaseError || snap.Message != session.NoResultsMessage {
		t.Fatalf("unmatched submit: phase %v message %q, want error %q", snap.Phase, snap.Message, session.NoResultsMessage)
	}

	ts.Close()
	sess.Submit(ctx, "anything at all")
	snap = waitSettled(t, sess)
	if snap.Phase != session.PhaseError {
		t.Fatalf("phase = %v after transport failure, want error", snap.Phase)
	}
	if !strings.Contains(snap.Message, "request failed") {
		t.Errorf("message %q does not describe the transport failure", snap.Message)
	}
}

// waitSettled polls until the session leaves the loading phase.
func waitSettled(t *testing.T, sess *session.Session) session.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := sess.Snapshot()
		if snap.Phase == session.PhaseResults || snap.Phase == session.PhaseError {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not settle within 5s")
	return session.Snapshot{}
}

func containsAny(got []string, expected []string) bool {
	set := make(map[string]bool, len(got))
	for _, id := range got {
		set[id] = true
	}
	for _, id := range expected {
		if set[id] {
			return true
		}
	}
	return false
}
