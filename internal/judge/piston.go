package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var pistonVersions = map[string]string{
	"c":          "10.2.0",
	"cpp":        "10.2.0",
	"java":       "15.0.2",
	"javascript": "18.15.0",
	"python":     "3.10.0",
}

// PistonClient talks to a Piston engine, which executes synchronously. Batch
// support is emulated: SubmitBatch runs every request inline and parks the
// results under synthetic tokens for PollBatch to hand back, so the scheduler
// sees the same token contract as Judge0.
type PistonClient struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	pending map[string]ExecutionResult
}

func NewPistonClient(baseURL string) *PistonClient {
	return &PistonClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pending:    make(map[string]ExecutionResult),
	}
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language           string       `json:"language"`
	Version            string       `json:"version"`
	Files              []pistonFile `json:"files"`
	Stdin              string       `json:"stdin"`
	CompileTimeout     int          `json:"compile_timeout"`
	RunTimeout         int          `json:"run_timeout"`
	CompileMemoryLimit int          `json:"compile_memory_limit"`
	RunMemoryLimit     int          `json:"run_memory_limit"`
}

type pistonPhase struct {
	Stdout string   `json:"stdout"`
	Stderr string   `json:"stderr"`
	Code   *int     `json:"code"`
	Signal *string  `json:"signal"`
	Memory *int     `json:"memory"`
	Time   *float64 `json:"time"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Compile  *pistonPhase `json:"compile"`
	Run      *pistonPhase `json:"run"`
	Message  string       `json:"message"`
}

func (c *PistonClient) Execute(ctx context.Context, req ExecutionRequest) ExecutionResult {
	lang := strings.ToLower(req.Language)
	version, ok := pistonVersions[lang]
	if !ok {
		return transportFailure(fmt.Errorf("unsupported language: %s", req.Language))
	}

	payload := pistonRequest{
		Language:           lang,
		Version:            version,
		Files:              []pistonFile{{Name: sourceFileName(lang), Content: req.SourceCode}},
		Stdin:              req.Stdin,
		CompileTimeout:     10000,
		RunTimeout:         5000,
		CompileMemoryLimit: -1,
		RunMemoryLimit:     -1,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return transportFailure(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(data))
	if err != nil {
		return transportFailure(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()
	elapsed := time.Since(started)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return transportFailure(fmt.Errorf("piston responded with %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var out pistonResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transportFailure(err)
	}
	if out.Run == nil {
		msg := out.Message
		if msg == "" {
			msg = "piston returned no run phase"
		}
		return transportFailure(fmt.Errorf("%s", msg))
	}
	return normalizePiston(out, req.SourceCode, elapsed)
}

func (c *PistonClient) SubmitBatch(ctx context.Context, reqs []ExecutionRequest) ([]string, error) {
	tokens := make([]string, len(reqs))
	results := make(map[string]ExecutionResult, len(reqs))
	for i, req := range reqs {
		token := uuid.NewString()
		tokens[i] = token
		results[token] = c.Execute(ctx, req)
	}

	c.mu.Lock()
	for token, res := range results {
		c.pending[token] = res
	}
	c.mu.Unlock()
	return tokens, nil
}

func (c *PistonClient) PollBatch(ctx context.Context, tokens []string) ([]ExecutionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ExecutionResult, len(tokens))
	for i, token := range tokens {
		res, ok := c.pending[token]
		if !ok {
			return nil, fmt.Errorf("unknown token: %s", token)
		}
		out[i] = res
		delete(c.pending, token)
	}
	return out, nil
}

func sourceFileName(lang string) string {
	switch lang {
	case "c":
		return "solution.c"
	case "cpp":
		return "solution.cpp"
	case "java":
		return "Solution.java"
	default:
		return "solution.txt"
	}
}

// normalizePiston synthesizes Judge0-style statuses from the two execution
// phases. Piston reports no memory for most runtimes, so a conservative
// estimate derived from the source size fills the gap.
func normalizePiston(res pistonResponse, sourceCode string, elapsed time.Duration) ExecutionResult {
	out := ExecutionResult{
		Stdout: res.Run.Stdout,
		Stderr: res.Run.Stderr,
	}

	if res.Compile != nil {
		if res.Compile.Code != nil && *res.Compile.Code != 0 {
			out.CompileOutput = res.Compile.Stderr
			if out.CompileOutput == "" {
				out.CompileOutput = res.Compile.Stdout
			}
			out.ExitStatusCode = *res.Compile.Code
			out.Status = Status{ID: StatusIDCompilationError, Description: "Compilation Error"}
			return out
		}
	}

	switch {
	case res.Run.Code != nil && *res.Run.Code == 0:
		out.ExitStatusCode = 0
		out.Status = Status{ID: StatusIDAccepted, Description: "Accepted"}
	case res.Run.Signal != nil && *res.Run.Signal == "SIGKILL":
		out.ExitStatusCode = 1
		out.Status = Status{ID: StatusIDTimeLimit, Description: "Time Limit Exceeded"}
	default:
		out.ExitStatusCode = 1
		if res.Run.Code != nil {
			out.ExitStatusCode = *res.Run.Code
		}
		out.Status = Status{ID: StatusIDRuntimeError, Description: "Runtime Error"}
	}

	if res.Run.Time != nil && *res.Run.Time > 0 {
		out.TimeMillis = *res.Run.Time * 1000
	} else {
		out.TimeMillis = float64(elapsed.Milliseconds())
	}

	if res.Run.Memory != nil && *res.Run.Memory > 0 {
		out.MemoryKb = *res.Run.Memory / 1024
	} else {
		out.MemoryKb = estimateMemoryKb(sourceCode)
	}
	return out
}

func estimateMemoryKb(sourceCode string) int {
	estimate := len(sourceCode) * 10
	if estimate < 5000 {
		estimate = 5000
	}
	if estimate > 100000 {
		estimate = 100000
	}
	return estimate
}
