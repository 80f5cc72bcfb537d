package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beingthebridges/grantpal/internal/errs"
)

func newTestClient(url string) *OpenAIClient {
	c := NewOpenAIClient(url, "sk-test", "", "", 0)
	return c
}

func TestGenerateCompletion(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Error(err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"grant_name\":\"Youth Fund\"}"}}]}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).GenerateCompletion(context.Background(), "extract fields", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != `{"grant_name":"Youth Fund"}` {
		t.Errorf("reply = %q", reply)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotReq.Temperature != 0 {
		t.Errorf("temperature = %v", gotReq.Temperature)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", gotReq.ResponseFormat)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "extract fields" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestGenerateCompletionTextModeOmitsResponseFormat(t *testing.T) {
	var rawBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&rawBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).GenerateCompletion(context.Background(), "p", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := rawBody["response_format"]; present {
		t.Error("response_format must be omitted outside json mode")
	}
}

func TestGenerateTextSetsMaxTokens(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"choices":[{"message":{"content":"an answer"}}]}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).GenerateText(context.Background(), "q", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "an answer" {
		t.Errorf("reply = %q", reply)
	}
	if gotReq.MaxTokens != 300 {
		t.Errorf("max_tokens = %d", gotReq.MaxTokens)
	}
}

func TestGenerateCompletionMissingAPIKey(t *testing.T) {
	c := NewOpenAIClient("http://unused", "", "", "", 0)
	if _, err := c.GenerateCompletion(context.Background(), "p", false); errs.KindOf(err) != errs.KindConfig {
		t.Errorf("expected config error, got %v", err)
	}
	if _, err := c.GenerateEmbedding(context.Background(), "t"); errs.KindOf(err) != errs.KindConfig {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestGenerateCompletionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateCompletion(context.Background(), "p", false)
	if errs.KindOf(err) != errs.KindUpstream {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestGenerateCompletionAPIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateCompletion(context.Background(), "p", false)
	if errs.KindOf(err) != errs.KindUpstream {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestGenerateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model = %q", req.Model)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	vec, err := newTestClient(srv.URL).GenerateEmbedding(context.Background(), "community grant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("embedding = %v", vec)
	}
}
