package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDocumentSendsUserAgentAndParses(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><h1 class="title">Dune</h1></body></html>`))
	}))
	defer server.Close()

	client := NewClient(Config{Client: server.Client(), UserAgent: "test-agent/1.0"})
	doc, err := client.Document(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUA != "test-agent/1.0" {
		t.Fatalf("unexpected user agent: %q", gotUA)
	}
	if got := doc.Find("h1.title").Text(); got != "Dune" {
		t.Fatalf("unexpected parsed content: %q", got)
	}
}

func TestDocumentReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{Client: server.Client()})
	_, err := client.Document(context.Background(), server.URL)
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T (%v)", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
}

func TestDocumentHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(Config{})
	if _, err := client.Document(ctx, "http://127.0.0.1:0/never"); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
