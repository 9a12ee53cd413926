package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeCompletions serves /chat/completions with a fixed answer and records
// the last request.
func fakeCompletions(t *testing.T, answer string, status int) (*httptest.Server, *map[string]interface{}) {
	t.Helper()
	var last map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization %q", got)
		}
		json.NewDecoder(r.Body).Decode(&last)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": answer},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestOpenAIClassifier_Classify(t *testing.T) {
	srv, last := fakeCompletions(t, "  Dermatologist\n", http.StatusOK)
	c := NewOpenAIClassifier("test-key", "", srv.URL)

	got, err := c.Classify(context.Background(), "itchy skin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Dermatologist" {
		t.Errorf("expected Dermatologist, got %q", got)
	}

	req := *last
	if req["model"] != "gpt-3.5-turbo" {
		t.Errorf("expected default model, got %v", req["model"])
	}
	if req["max_tokens"] != float64(50) {
		t.Errorf("expected max_tokens 50, got %v", req["max_tokens"])
	}
	msgs := req["messages"].([]interface{})
	content := msgs[0].(map[string]interface{})["content"].(string)
	if !strings.Contains(content, "Symptoms: itchy skin") {
		t.Errorf("unexpected prompt: %s", content)
	}
}

func TestOpenAIClassifier_RejectsUnknownAnswer(t *testing.T) {
	srv, _ := fakeCompletions(t, "Podiatrist", http.StatusOK)
	c := NewOpenAIClassifier("test-key", "gpt-4o-mini", srv.URL)

	_, err := c.Classify(context.Background(), "sore feet")
	if !errors.Is(err, ErrUnrecognised) {
		t.Errorf("expected ErrUnrecognised, got %v", err)
	}
}

func TestOpenAIClassifier_APIError(t *testing.T) {
	srv, _ := fakeCompletions(t, "", http.StatusInternalServerError)
	c := NewOpenAIClassifier("test-key", "", srv.URL+"/")

	if _, err := c.Classify(context.Background(), "cough"); err == nil {
		t.Error("expected error from failing API")
	}
}
