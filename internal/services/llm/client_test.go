package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testSchema = Schema{
	Name: "grouped_video_feed",
	Schema: map[string]any{
		"type":     "object",
		"required": []string{"groups"},
	},
}

func writeCompletion(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClientSendsAttributionHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("HTTP-Referer"); got != "https://example.test" {
			t.Errorf("unexpected referer %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "feedcurator" {
			t.Errorf("unexpected title %q", got)
		}
		writeCompletion(t, w, map[string]any{
			"message": map[string]any{"content": "```json\n{\"groups\":[]}\n```"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "test",
		BaseURL: server.URL,
		Model:   " demo-model ",
		Referer: "https://example.test",
		Title:   "feedcurator",
	})
	if client.Model() != "demo-model" {
		t.Fatalf("expected trimmed model, got %q", client.Model())
	}
	content, err := client.CompleteSchema(context.Background(), "system", "user", testSchema)
	if err != nil {
		t.Fatalf("CompleteSchema returned error: %v", err)
	}
	var parsed struct {
		Groups []any `json:"groups"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		t.Fatalf("fenced content should decode: %v", err)
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.CompleteSchema(context.Background(), "system", "user", testSchema)
	if err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryBackoff(t *testing.T) {
	p := retryPolicy{base: time.Second, ceiling: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("attempt %d: got %v, want %v", i+1, got, w)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.value, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestClientCompleteSchemaSendsResponseFormat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(t, w, map[string]any{
			"message": map[string]any{"content": `{"groups":[]}`},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Temperature: 0.2})
	content, err := client.CompleteSchema(context.Background(), "system", "user", testSchema)
	if err != nil {
		t.Fatalf("CompleteSchema returned error: %v", err)
	}
	if content != `{"groups":[]}` {
		t.Fatalf("unexpected content %q", content)
	}
	if captured["temperature"] != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", captured["temperature"])
	}
	format, _ := captured["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", format)
	}
	schema, _ := format["json_schema"].(map[string]any)
	if schema["name"] != "grouped_video_feed" {
		t.Fatalf("expected schema name, got %v", schema)
	}
}

func TestClientCompleteSchemaRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if client.Configured() {
		t.Fatal("expected client without key to be unconfigured")
	}
	_, err := client.CompleteSchema(context.Background(), "system", "user", testSchema)
	if err == nil || !strings.Contains(err.Error(), "api key required") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestClientCompleteSchemaToolCallsArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"content": "",
				"tool_calls": []any{
					map[string]any{
						"type": "function",
						"id":   "call_1",
						"function": map[string]any{
							"name":      "group_videos",
							"arguments": `{"groups":[{"category":"Learning","videos":[]}]}`,
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.CompleteSchema(context.Background(), "system", "user", testSchema)
	if err != nil {
		t.Fatalf("CompleteSchema returned error: %v", err)
	}
	if !strings.Contains(content, "\"Learning\"") {
		t.Fatalf("expected tool call arguments, got %q", content)
	}
}

func TestClientCompleteEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{
			"finish_reason": "stop",
			"message":       map[string]any{"content": ""},
		})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.CompleteSchema(context.Background(), "system", "user", testSchema)
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientCompleteDeltaAndLegacyText(t *testing.T) {
	tests := []struct {
		name   string
		choice map[string]any
	}{
		{
			name:   "delta",
			choice: map[string]any{"delta": map[string]any{"content": `{"groups":[]}`}},
		},
		{
			name:   "legacy text",
			choice: map[string]any{"finish_reason": "stop", "text": `{"groups":[]}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, tt.choice)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
			content, err := client.CompleteSchema(context.Background(), "system", "user", testSchema)
			if err != nil {
				t.Fatalf("CompleteSchema returned error: %v", err)
			}
			if content != `{"groups":[]}` {
				t.Fatalf("unexpected content %q", content)
			}
		})
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		writeCompletion(t, w, map[string]any{
			"message": map[string]any{"content": `{"groups":[]}`},
		})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteSchema(context.Background(), "system", "user", testSchema); err != nil {
		t.Fatalf("CompleteSchema returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryOnHTTP400(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad schema"}}`))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(3),
	)
	if _, err := client.CompleteSchema(context.Background(), "system", "user", testSchema); err == nil {
		t.Fatal("expected completion to fail")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "plain", content: `{"ok":true}`},
		{name: "fenced", content: "```json\n{\"ok\":true}\n```"},
		{name: "prose wrapped", content: "Here you go: {\"ok\":true} enjoy"},
		{name: "empty", content: "   ", wantErr: true},
		{name: "garbage", content: "not json at all", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parsed struct {
				OK bool `json:"ok"`
			}
			err := DecodeLLMJSON(tt.content, &parsed)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLLMJSON returned error: %v", err)
			}
			if !parsed.OK {
				t.Fatal("expected ok=true")
			}
		})
	}
}
