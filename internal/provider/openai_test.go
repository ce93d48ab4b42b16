package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth: %s", r.Header.Get("Authorization"))
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": content}},
				},
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(baseURL string) *OpenAIClient {
	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = baseURL
	return NewOpenAIClient(cfg)
}

func TestGenerateParsesFencedJSON(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "Here is the analysis:\n```json\n{\"summary\": \"pacing\"}\n```\nDone.")
	client := testClient(srv.URL)

	structured, raw, err := client.Generate(context.Background(), "sys", "input")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(structured, &out); err != nil {
		t.Fatalf("unmarshal structured: %v", err)
	}
	if out["summary"] != "pacing" {
		t.Fatalf("wrong structured output: %v", out)
	}
	if raw == "" {
		t.Fatal("raw text must be returned")
	}
}

func TestGenerateServerErrorIsUnavailable(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "")
	client := testClient(srv.URL)

	_, _, err := client.Generate(context.Background(), "sys", "input")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGenerateNonJSONReplyIsMalformed(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "I cannot produce JSON today.")
	client := testClient(srv.URL)

	_, raw, err := client.Generate(context.Background(), "sys", "input")
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	if raw != "I cannot produce JSON today." {
		t.Fatalf("raw text lost: %q", raw)
	}
}

func TestGenerateConnectionRefusedIsUnavailable(t *testing.T) {
	client := testClient("http://127.0.0.1:1")

	_, _, err := client.Generate(context.Background(), "sys", "input")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string // "" means nil expected
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced block wins", "prose {\"decoy\": true} more\n```json\n{\"a\": 2}\n```", `{"a": 2}`},
		{"embedded object", `The result is {"a": 3} as requested.`, `{"a": 3}`},
		{"no object", "no json here", ""},
		{"broken object", `{"a": `, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractJSON(tc.in)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("expected nil, got %s", got)
				}
				return
			}
			if string(got) != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}
