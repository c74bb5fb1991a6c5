// Package e2e provides end-to-end tests with a large corpus and multiple queries.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/terasu/internal/models"
)

// E2EDocument is a document entry in the E2E corpus.
type E2EDocument struct {
	ID   string
	Name string
	Text string
}

// QueryTestCase defines a query and the corpus document ID(s) that must
// appear in the search results. At least one of ExpectedDocIDs must be
// present.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// BuildCorpus returns a corpus of 100 documents and a set of query test
// cases. Each document carries a distinctive phrase so queries can assert
// that the right document comes back.
func BuildCorpus() *Corpus {
	docs := buildDocuments(100)
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

func buildDocuments(n int) []E2EDocument {
	topics := []struct {
		name   string
		phrase string
		text   string
	}{
		{"Go Concurrency", "Goroutines and channels", "Go builds concurrent programs from simple primitives. Goroutines and channels make worker pipelines cheap to assemble."},
		{"Machine Learning", "Machine learning algorithms", "Machine Learning is a subset of AI. Machine learning algorithms learn patterns from data."},
		{"Full-Text Search", "Inverted index ranking", "Search engines answer free-text queries. Inverted index ranking orders documents by term statistics."},
		{"Release Runbook", "Release checklist rollback", "Every deploy follows the same steps. Release checklist rollback covers migrations and feature flags."},
		{"Postgres Tuning", "PostgreSQL query planner", "Slow queries usually blame the planner. PostgreSQL query planner decisions depend on fresh statistics."},
		{"Kubernetes Basics", "Kubernetes pod scheduling", "Clusters run containers across many nodes. Kubernetes pod scheduling places workloads by resource requests."},
		{"Docker Images", "Docker image layers", "Containers package applications with their dependencies. Docker image layers cache intermediate build steps."},
		{"HTTP Caching", "Cache control headers", "Browsers and proxies reuse responses. Cache control headers decide freshness and revalidation."},
		{"REST Conventions", "REST resource naming", "APIs model nouns, not verbs. REST resource naming keeps URLs predictable and plural."},
		{"gRPC Services", "gRPC streaming calls", "Binary protocols cut serialization cost. gRPC streaming calls multiplex over a single connection."},
		{"Message Queues", "Message queue backpressure", "Producers and consumers scale independently. Message queue backpressure protects slow consumers."},
		{"Kafka Topics", "Kafka partition offsets", "Event logs retain history. Kafka partition offsets let consumers resume where they stopped."},
		{"Redis Caching", "Redis cache eviction", "Hot data lives in memory. Redis cache eviction policies balance hit rate and memory."},
		{"TLS Everywhere", "TLS certificate rotation", "Encrypted transport is the default. TLS certificate rotation must happen before expiry."},
		{"OAuth Flows", "OAuth authorization code", "Delegated access needs a protocol. OAuth authorization code flow suits server-side apps."},
		{"Password Storage", "Password hashing bcrypt", "Plaintext passwords are never stored. Password hashing bcrypt slows offline guessing."},
		{"Structured Logging", "Structured logging fields", "Log lines should be machine readable. Structured logging fields beat free-form messages."},
		{"Metrics Dashboards", "Prometheus histogram buckets", "Latency hides in the tail. Prometheus histogram buckets make percentiles computable."},
		{"Distributed Tracing", "Tracing span context", "One request crosses many services. Tracing span context propagates through headers."},
		{"Incident Response", "Incident response runbook", "Outages need calm procedure. Incident response runbook lists owners and first steps."},
		{"Postmortems", "Blameless postmortem culture", "Failures teach more than successes. Blameless postmortem culture looks at systems, not people."},
		{"Error Budgets", "Error budget policy", "Perfect reliability is too expensive. Error budget policy trades velocity against risk."},
		{"Graceful Shutdown", "Graceful shutdown draining", "Restarts should not drop requests. Graceful shutdown draining finishes in-flight work first."},
		{"Health Checks", "Liveness readiness probes", "Orchestrators need signals. Liveness readiness probes separate crashed from warming up."},
		{"Feature Flags", "Feature flag rollout", "Deploy and release are different events. Feature flag rollout exposes changes gradually."},
		{"Blue-Green Deploys", "Blue-green deployment switch", "Two environments remove downtime. Blue-green deployment switch happens at the router."},
		{"Canary Releases", "Canary release analysis", "A small slice of traffic goes first. Canary release analysis compares error rates before promoting."},
		{"Git Hygiene", "Git rebase history", "Readable history helps reviewers. Git rebase history keeps feature branches linear."},
		{"Code Review", "Code review checklist", "A second pair of eyes catches bugs. Code review checklist covers tests, naming, and edge cases."},
		{"Unit Testing", "Table driven tests", "Small tests document behavior. Table driven tests cover many cases with one loop."},
		{"Fuzzing", "Fuzz testing corpus", "Random inputs find strange bugs. Fuzz testing corpus seeds guide the mutator."},
		{"Benchmarking", "Benchmark allocation profile", "Performance claims need numbers. Benchmark allocation profile shows where memory goes."},
		{"Profiling", "CPU profile flamegraph", "Guessing at bottlenecks wastes time. CPU profile flamegraph shows the hot path."},
		{"Memory Leaks", "Heap growth diagnosis", "Long-lived processes drift upward. Heap growth diagnosis starts with live object counts."},
		{"Rate Limiting", "Token bucket limiter", "APIs defend themselves. Token bucket limiter smooths bursts while capping sustained rate."},
		{"Circuit Breakers", "Circuit breaker tripping", "Failing fast beats queueing forever. Circuit breaker tripping isolates a sick dependency."},
		{"Retries", "Retry exponential backoff", "Transient failures deserve another try. Retry exponential backoff avoids thundering herds."},
		{"Idempotency", "Idempotency key design", "Retries must be safe. Idempotency key design makes duplicate requests harmless."},
		{"Pagination", "Cursor based pagination", "Large result sets ship in pages. Cursor based pagination stays stable under writes."},
		{"Schema Migrations", "Database migration ordering", "Schema changes ship with code. Database migration ordering must tolerate rolling deploys."},
		{"Backups", "Backup restore drills", "A backup untested is a hope. Backup restore drills prove recovery actually works."},
		{"Secrets Handling", "Secrets rotation vault", "Credentials do not belong in code. Secrets rotation vault policies expire static keys."},
		{"Config Layout", "Configuration precedence order", "Settings come from many places. Configuration precedence order is flags over env over file."},
		{"CLI Design", "Command line ergonomics", "Tools live in pipelines. Command line ergonomics favors quiet success and plain output."},
		{"Text Encoding", "UTF-8 validation", "Bytes are not characters. UTF-8 validation rejects malformed sequences early."},
		{"Regular Expressions", "Regular expression anchors", "Patterns match more than intended. Regular expression anchors pin matches to boundaries."},
		{"Tokenization", "Whitespace tokenizer terms", "Queries split into terms. Whitespace tokenizer terms keep punctuation inside words."},
		{"Highlighting", "Query term highlighting", "Readers want to see why a document matched. Query term highlighting marks each hit in context."},
		{"Relevance Scoring", "Term frequency scoring", "Not all matches are equal. Term frequency scoring rewards repeated and rare terms."},
		{"Stemming Tradeoffs", "Stemming false positives", "Aggressive normalization loses precision. Stemming false positives surprise exact-match users."},
		{"Stop Words", "Stop word removal", "Common words carry little signal. Stop word removal shrinks the index but changes recall."},
		{"Synonyms", "Synonym expansion query", "Users phrase things differently. Synonym expansion query rewriting bridges vocabulary gaps."},
		{"File Watching", "Filesystem watcher debounce", "Editors save in bursts. Filesystem watcher debounce coalesces rapid change events."},
		{"Document Extraction", "Document text extraction", "Search sees only text. Document text extraction flattens formats into plain words."},
		{"Spreadsheets", "Spreadsheet cell values", "Tables hide prose. Spreadsheet cell values still deserve indexing."},
		{"PDF Pitfalls", "PDF text layout", "Print formats scramble reading order. PDF text layout complicates extraction."},
	}

	out := make([]E2EDocument, 0, n)
	for i := 0; i < n && i < len(topics); i++ {
		t := topics[i]
		id := fmt.Sprintf("e2e-doc-%03d", i+1)
		out = append(out, E2EDocument{
			ID:   id,
			Name: t.name,
			Text: t.text,
		})
	}
	// Past the topic list, repeat content under fresh IDs and names.
	for len(out) < n {
		i := len(out)
		t := topics[i%len(topics)]
		id := fmt.Sprintf("e2e-doc-%03d", i+1)
		out = append(out, E2EDocument{
			ID:   id,
			Name: fmt.Sprintf("%s (%d)", t.name, i+1),
			Text: t.text,
		})
	}
	return out
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	if len(docs) == 0 {
		return nil
	}
	// Each phrase appears verbatim in exactly one topic. The expected doc
	// is the first one containing it, so duplicated docs never shadow the
	// original.
	phrases := []string{
		"Goroutines and channels", "Machine learning algorithms", "Inverted index ranking", "Release checklist rollback",
		"PostgreSQL query planner", "Kubernetes pod scheduling", "Docker image layers", "Cache control headers",
		"REST resource naming", "gRPC streaming calls", "Message queue backpressure", "Kafka partition offsets",
		"Redis cache eviction", "TLS certificate rotation", "OAuth authorization code", "Password hashing bcrypt",
		"Structured logging fields", "Prometheus histogram buckets", "Tracing span context", "Incident response runbook",
		"Blameless postmortem culture", "Error budget policy", "Graceful shutdown draining", "Liveness readiness probes",
		"Feature flag rollout", "Blue-green deployment switch", "Canary release analysis", "Git rebase history",
		"Code review checklist", "Table driven tests", "Fuzz testing corpus", "Token bucket limiter",
		"Circuit breaker tripping", "Retry exponential backoff", "Idempotency key design", "Cursor based pagination",
		"Database migration ordering", "Backup restore drills", "Configuration precedence order", "Command line ergonomics",
		"UTF-8 validation", "Regular expression anchors", "Whitespace tokenizer terms", "Query term highlighting",
		"Term frequency scoring", "Stemming false positives", "Stop word removal", "Filesystem watcher debounce",
		"Document text extraction", "Spreadsheet cell values",
	}
	var cases []QueryTestCase
	used := make(map[string]bool)
	for _, p := range phrases {
		for _, d := range docs {
			if containsPhrase(d, p) && !used[d.ID] {
				cases = append(cases, QueryTestCase{
					Query:          p,
					ExpectedDocIDs: []string{d.ID},
					Description:    fmt.Sprintf("query %q should return doc %s", p, d.ID),
				})
				used[d.ID] = true
				break
			}
		}
	}
	return cases
}

func containsPhrase(d E2EDocument, phrase string) bool {
	return strings.Contains(d.Name, phrase) || strings.Contains(d.Text, phrase)
}

// ToDocumentInputs converts the corpus documents to API submission bodies.
// The server assigns its own IDs; callers track the mapping from corpus ID
// to assigned ID as they submit.
func (c *Corpus) ToDocumentInputs() []*models.DocumentInput {
	out := make([]*models.DocumentInput, len(c.Documents))
	for i := range c.Documents {
		d := &c.Documents[i]
		out[i] = &models.DocumentInput{
			Name: d.Name,
			Text: d.Text,
		}
	}
	return out
}
