package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caregate/caregate/domain/chat"
	"github.com/caregate/caregate/ports"
)

func TestClient_Ask(t *testing.T) {
	var gotAuth string
	var gotBody askRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/answers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"answer": "Migraines have many triggers.",
			"citations": []map[string]string{
				{"source": "kb", "ref": "doc-42", "title": "Headache overview"},
			},
			"latency_ms": 350,
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	answer, err := client.Ask(context.Background(), ports.AssistantRequest{
		AccountID:      "acc-1",
		Question:       "What causes migraines?",
		ProfileContext: "Age: 38",
		History: []chat.Message{
			{Role: chat.RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if answer.Content != "Migraines have many triggers." {
		t.Errorf("content = %q", answer.Content)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].Ref != "doc-42" {
		t.Errorf("citations = %+v", answer.Citations)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.ProfileContext != "Age: 38" {
		t.Errorf("profile context = %q", gotBody.ProfileContext)
	}
	if len(gotBody.History) != 1 || gotBody.History[0].Role != "user" {
		t.Errorf("history = %+v", gotBody.History)
	}
}

func TestClient_AskErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := client.Ask(context.Background(), ports.AssistantRequest{Question: "q"}); err == nil {
		t.Error("expected error on 503")
	}
}

func TestClient_IndexDocument(t *testing.T) {
	var got indexRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := client.IndexDocument(context.Background(), "acc-1", "doc-1", "Blood work", []byte("results")); err != nil {
		t.Fatalf("index: %v", err)
	}
	if got.DocumentID != "doc-1" || got.AccountID != "acc-1" {
		t.Errorf("request = %+v", got)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("healthy service reported unhealthy: %v", err)
	}
	healthy = false
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("unhealthy service reported healthy")
	}
}
