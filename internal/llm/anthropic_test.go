package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key")
	c.baseURL = srv.URL
	return c
}

func TestComplete(t *testing.T) {
	var got anthropicRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"{\"purchaseMade\":true}"}],"stop_reason":"end_turn"}`)
	})

	text, err := c.Complete(context.Background(), "system role", "user prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"purchaseMade":true}` {
		t.Errorf("unexpected text: %q", text)
	}
	if got.System != "system role" {
		t.Errorf("system prompt not forwarded, got %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "user prompt" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestComplete_EmptyContentIsRefusal(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[],"stop_reason":"end_turn"}`)
	})
	_, err := c.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrModelRefused) {
		t.Errorf("expected ErrModelRefused, got %v", err)
	}
}

func TestComplete_ServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestComplete_TransportError(t *testing.T) {
	c := NewClient("key")
	c.baseURL = "http://127.0.0.1:1"
	_, err := c.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestComplete_MissingKey(t *testing.T) {
	c := NewClient("")
	_, err := c.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}
