package backup

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"markwiki/app/internal/dbservice"
)

func TestPushUploadsPagesAndReturnsURL(t *testing.T) {
	t.Parallel()

	var received snippetPayload
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.Method != stdhttp.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"abc123"}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	url, err := client.Push(context.Background(), []dbservice.PageData{
		{Name: "Home", Content: "# Hi"},
		{Name: "About", Content: "..."},
	})
	if err != nil {
		t.Fatalf("Push returned error: %v", err)
	}

	if url != "https://snippets.example/view/abc123" {
		t.Fatalf("unexpected snippet URL: %q", url)
	}

	if len(received.Files) != 2 {
		t.Fatalf("expected 2 files in payload, got %d", len(received.Files))
	}
	if received.Files[0].Name != "Home" || received.Files[0].Content != "# Hi" {
		t.Fatalf("unexpected first file: %#v", received.Files[0])
	}
	if received.Public != "true" {
		t.Fatalf("expected public snippet, got %q", received.Public)
	}
}

func TestPushRejectsNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	if _, err := client.Push(context.Background(), nil); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestPushRequiresSnippetID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	if _, err := client.Push(context.Background(), nil); err == nil {
		t.Fatalf("expected error when response has no id")
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(Options{
		Endpoint:      endpoint,
		PublicBaseURL: "https://snippets.example/view",
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	return client
}
