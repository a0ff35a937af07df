package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestJudge0ExecuteWaitMode(t *testing.T) {
	var gotKey, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/submissions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Error("expected wait=true")
		}
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")

		var sub judge0Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if sub.LanguageID != 71 {
			t.Errorf("expected python language id 71, got %d", sub.LanguageID)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"stdout": "42\n",
			"time":   "0.002",
			"memory": 1024.0,
			"status": map[string]any{"id": 3, "description": "Accepted"},
		})
	}))
	defer srv.Close()

	c := NewJudge0Client(srv.URL, "key123", "host.example")
	res := c.Execute(context.Background(), ExecutionRequest{Language: "python", SourceCode: "print(42)", Stdin: ""})

	if res.Status.ID != StatusIDAccepted {
		t.Fatalf("expected accepted, got %+v", res.Status)
	}
	if res.Stdout != "42\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.TimeMillis != 2 {
		t.Errorf("expected 2ms, got %v", res.TimeMillis)
	}
	if res.MemoryKb != 1024 {
		t.Errorf("expected 1024kb, got %d", res.MemoryKb)
	}
	if res.ExitStatusCode != 0 {
		t.Errorf("accepted runs default to exit 0, got %d", res.ExitStatusCode)
	}
	if gotKey != "key123" || gotHost != "host.example" {
		t.Errorf("missing RapidAPI headers: key=%q host=%q", gotKey, gotHost)
	}
}

func TestJudge0ExecuteFallsBackToTokenPolling(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			// Ignores wait=true and hands back a queued token.
			json.NewEncoder(w).Encode(map[string]any{
				"token":  "abc123",
				"status": map[string]any{"id": 1, "description": "In Queue"},
			})
		case strings.HasPrefix(r.URL.Path, "/submissions/abc123"):
			polls++
			if polls < 2 {
				json.NewEncoder(w).Encode(map[string]any{
					"status": map[string]any{"id": 2, "description": "Processing"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"stdout": "done",
				"status": map[string]any{"id": 3, "description": "Accepted"},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewJudge0Client(srv.URL, "", "")
	c.singlePollBaseDelay = time.Millisecond

	res := c.Execute(context.Background(), ExecutionRequest{Language: "python", SourceCode: "x"})
	if res.Status.ID != StatusIDAccepted {
		t.Fatalf("expected accepted after polling, got %+v", res.Status)
	}
	if res.Stdout != "done" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if polls < 2 {
		t.Errorf("expected at least 2 polls, got %d", polls)
	}
}

func TestJudge0ExecuteUnsupportedLanguage(t *testing.T) {
	c := NewJudge0Client("http://unused", "", "")
	res := c.Execute(context.Background(), ExecutionRequest{Language: "cobol", SourceCode: "x"})
	if res.Status.ID != StatusIDInternalError {
		t.Fatalf("expected internal error status, got %+v", res.Status)
	}
	if res.ExitStatusCode != 1 {
		t.Errorf("expected exit 1, got %d", res.ExitStatusCode)
	}
	if !strings.Contains(res.Stderr, "unsupported language") {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestJudge0BatchRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var payload map[string][]judge0Submission
			json.NewDecoder(r.Body).Decode(&payload)
			out := make([]map[string]string, len(payload["submissions"]))
			for i := range out {
				out[i] = map[string]string{"token": "tok-" + string(rune('a'+i))}
			}
			json.NewEncoder(w).Encode(out)
		case http.MethodGet:
			tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
			subs := make([]map[string]any, len(tokens))
			for i, tok := range tokens {
				subs[i] = map[string]any{
					"token":  tok,
					"stdout": tok + " out",
					"status": map[string]any{"id": 3, "description": "Accepted"},
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"submissions": subs})
		}
	}))
	defer srv.Close()

	c := NewJudge0Client(srv.URL, "", "")
	reqs := []ExecutionRequest{
		{Language: "python", SourceCode: "x", Stdin: "1"},
		{Language: "python", SourceCode: "x", Stdin: "2"},
	}

	tokens, err := c.SubmitBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "tok-a" || tokens[1] != "tok-b" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}

	results, err := c.PollBatch(context.Background(), tokens)
	if err != nil {
		t.Fatalf("PollBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Stdout != "tok-a out" || results[1].Stdout != "tok-b out" {
		t.Errorf("results out of order: %q, %q", results[0].Stdout, results[1].Stdout)
	}
}

func TestJudge0NonSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewJudge0Client(srv.URL, "", "")
	res := c.Execute(context.Background(), ExecutionRequest{Language: "python", SourceCode: "x"})
	if res.Status.ID != StatusIDInternalError {
		t.Fatalf("expected internal error, got %+v", res.Status)
	}
	if !strings.Contains(res.Stderr, "quota exceeded") {
		t.Errorf("stderr = %q", res.Stderr)
	}

	if _, err := c.SubmitBatch(context.Background(), []ExecutionRequest{{Language: "python", SourceCode: "x"}}); err == nil {
		t.Error("SubmitBatch should surface transport errors")
	}
}
