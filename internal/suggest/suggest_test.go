package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tinoosan/radiofetch/internal/data"
)

func testService(url string) *OpenAIService {
	s := NewOpenAIService("key")
	s.endpoint = url
	return s
}

func TestSuggestTracks(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Fatalf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[{\"title\":\"Children\",\"artist\":\"Robert Miles\",\"album\":\"Dreamland\"}]"}}]}`))
	}))
	defer srv.Close()

	tracks := []data.AudioMetadata{
		{Title: "Sunday Breakfast", Artist: "Ted Irens", Album: "Foo"},
		{Title: "Fable", Artist: "Robert Miles", Album: "Dreamland"},
	}
	suggestions, err := testService(srv.URL).SuggestTracks(context.Background(), tracks)
	if err != nil {
		t.Fatalf("SuggestTracks: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Title != "Children" {
		t.Fatalf("suggestions = %v", suggestions)
	}

	messages, ok := gotBody["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", gotBody["messages"])
	}
	user := messages[1].(map[string]any)
	if user["content"] != "Ted Irens - Sunday Breakfast\nRobert Miles - Fable" {
		t.Fatalf("user content = %q", user["content"])
	}
}

func TestSuggestTracksUnparseableReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Sorry, I cannot do that."}}]}`))
	}))
	defer srv.Close()

	suggestions, err := testService(srv.URL).SuggestTracks(context.Background(), nil)
	if err != nil {
		t.Fatalf("SuggestTracks: %v", err)
	}
	if len(suggestions) != 0 {
		t.Fatalf("suggestions = %v, want none", suggestions)
	}
}

func TestSuggestTracksHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testService(srv.URL).SuggestTracks(context.Background(), nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
