package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samvad-hq/samvad-joke-harvester/internal/domain"
)

func TestHTTPPublisherSuccess(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("expected PUT, got %s", r.Method)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Fatalf("missing header, got %s", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("unexpected content type %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), sanitizePublisherConfig(PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         "put",
			Headers:        map[string]string{"X-Test": "1", " ": "dropped"},
			TimeoutSeconds: 2,
		},
	}), nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("ten", domain.Joke{ID: 5, Type: "programming", Setup: "s", Punchline: "p"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if received.EventID != evt.EventID || received.Joke.ID != 5 {
		t.Fatalf("server received unexpected event %+v", received)
	}
}

func TestHTTPPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         http.MethodPost,
			TimeoutSeconds: 1,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	if err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}
