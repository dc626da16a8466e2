package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

// fakeOpenAI serves the two endpoints the client uses and records requests.
type fakeOpenAI struct {
	t *testing.T

	embedStatus int
	embedVector []float32

	chatStatus  int
	chatContent string
	noChoices   bool

	lastEmbedReq map[string]any
	lastChatReq  map[string]any
}

func (f *fakeOpenAI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastEmbedReq)
		if f.embedStatus != 0 {
			w.WriteHeader(f.embedStatus)
			w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": f.embedVector},
			},
		})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastChatReq)
		if f.chatStatus != 0 {
			w.WriteHeader(f.chatStatus)
			w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		choices := []map[string]any{}
		if !f.noChoices {
			choices = append(choices, map[string]any{
				"index":   0,
				"message": map[string]any{"role": "assistant", "content": f.chatContent},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object":  "chat.completion",
			"choices": choices,
		})
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeOpenAI) *Client {
	t.Helper()
	fake.t = t
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4-turbo",
	})
}

func TestEmbed(t *testing.T) {
	fake := &fakeOpenAI{embedVector: []float32{0.1, 0.2, 0.3}}
	client := newTestClient(t, fake)

	vec, err := client.Embed(context.Background(), "how much phe in rice?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(vec, []float32{0.1, 0.2, 0.3}) {
		t.Errorf("unexpected vector: %v", vec)
	}

	if got := fake.lastEmbedReq["model"]; got != "text-embedding-3-small" {
		t.Errorf("wrong embed model sent: %v", got)
	}
	input, ok := fake.lastEmbedReq["input"].([]any)
	if !ok || len(input) != 1 || input[0] != "how much phe in rice?" {
		t.Errorf("wrong input sent: %v", fake.lastEmbedReq["input"])
	}
}

func TestEmbed_ServiceError(t *testing.T) {
	fake := &fakeOpenAI{embedStatus: http.StatusInternalServerError}
	client := newTestClient(t, fake)

	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error from a failing embedding service")
	}
}

func TestComplete(t *testing.T) {
	fake := &fakeOpenAI{chatContent: "Rice has about 130mg of phe per 100g."}
	client := newTestClient(t, fake)

	reply, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are PKU Wise."},
			{Role: RoleUser, Content: "How much phe in rice?"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Rice has about 130mg of phe per 100g." {
		t.Errorf("unexpected reply: %q", reply)
	}

	// Default chat model is used when the request names none.
	if got := fake.lastChatReq["model"]; got != "gpt-4-turbo" {
		t.Errorf("wrong chat model sent: %v", got)
	}
	msgs, ok := fake.lastChatReq["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("wrong messages sent: %v", fake.lastChatReq["messages"])
	}
}

func TestComplete_ModelOverride(t *testing.T) {
	fake := &fakeOpenAI{chatContent: "ok"}
	client := newTestClient(t, fake)

	_, err := client.Complete(context.Background(), CompletionRequest{
		Model:    "gpt-3.5-turbo",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fake.lastChatReq["model"]; got != "gpt-3.5-turbo" {
		t.Errorf("model override not applied: %v", got)
	}
}

func TestComplete_JSONMode(t *testing.T) {
	fake := &fakeOpenAI{chatContent: `{"recipes":[]}`}
	client := newTestClient(t, fake)

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "recipes"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	format, ok := fake.lastChatReq["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Errorf("json mode not requested: %v", fake.lastChatReq["response_format"])
	}
}

func TestComplete_NoChoices(t *testing.T) {
	fake := &fakeOpenAI{noChoices: true}
	client := newTestClient(t, fake)

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got %v", err)
	}
}

func TestComplete_ServiceError(t *testing.T) {
	fake := &fakeOpenAI{chatStatus: http.StatusBadGateway}
	client := newTestClient(t, fake)

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected an error from a failing completion service")
	}
}
