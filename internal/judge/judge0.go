package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const judge0Fields = "token,stdout,stderr,compile_output,exit_code,time,memory,status"

var judge0LanguageIDs = map[string]int{
	"c":          50,
	"cpp":        54,
	"java":       62,
	"javascript": 63,
	"python":     71,
}

// Judge0Client talks to a Judge0 instance (self-hosted or RapidAPI). Single
// executions use wait mode with a token-poll fallback; batches go through the
// batch endpoints and are polled by the scheduler.
type Judge0Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client

	singlePollBaseDelay   time.Duration
	singlePollMaxAttempts int
}

func NewJudge0Client(baseURL, apiKey, apiHost string) *Judge0Client {
	return &Judge0Client{
		baseURL:               strings.TrimRight(baseURL, "/"),
		apiKey:                apiKey,
		apiHost:               apiHost,
		httpClient:            &http.Client{Timeout: 30 * time.Second},
		singlePollBaseDelay:   time.Second,
		singlePollMaxAttempts: 10,
	}
}

type judge0Submission struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type judge0Result struct {
	Token         string   `json:"token"`
	Stdout        *string  `json:"stdout"`
	Stderr        *string  `json:"stderr"`
	CompileOutput *string  `json:"compile_output"`
	ExitCode      *int     `json:"exit_code"`
	Time          *string  `json:"time"`
	Memory        *float64 `json:"memory"`
	Status        *Status  `json:"status"`
}

func (c *Judge0Client) Execute(ctx context.Context, req ExecutionRequest) ExecutionResult {
	sub, err := c.buildSubmission(req)
	if err != nil {
		return transportFailure(err)
	}

	var res judge0Result
	endpoint := c.baseURL + "/submissions?base64_encoded=false&wait=true&fields=" + judge0Fields
	if err := c.doJSON(ctx, http.MethodPost, endpoint, sub, &res); err != nil {
		return transportFailure(err)
	}

	if res.Status != nil && res.Status.ID > StatusIDProcessing {
		return normalizeJudge0(res)
	}
	// Some deployments ignore wait=true under load and hand back a queued
	// token instead of a finished result.
	if res.Token != "" {
		return c.pollOne(ctx, res.Token)
	}
	return transportFailure(errors.New("judge returned neither a terminal status nor a token"))
}

func (c *Judge0Client) SubmitBatch(ctx context.Context, reqs []ExecutionRequest) ([]string, error) {
	subs := make([]judge0Submission, 0, len(reqs))
	for _, req := range reqs {
		sub, err := c.buildSubmission(req)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	payload := map[string][]judge0Submission{"submissions": subs}
	var created []judge0Result
	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	if err := c.doJSON(ctx, http.MethodPost, endpoint, payload, &created); err != nil {
		return nil, err
	}
	if len(created) != len(reqs) {
		return nil, fmt.Errorf("judge created %d submissions for %d requests", len(created), len(reqs))
	}

	tokens := make([]string, len(created))
	for i, r := range created {
		if r.Token == "" {
			return nil, fmt.Errorf("judge returned an empty token at position %d", i)
		}
		tokens[i] = r.Token
	}
	return tokens, nil
}

func (c *Judge0Client) PollBatch(ctx context.Context, tokens []string) ([]ExecutionResult, error) {
	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false&tokens=" +
		url.QueryEscape(strings.Join(tokens, ",")) + "&fields=" + judge0Fields

	var res struct {
		Submissions []judge0Result `json:"submissions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &res); err != nil {
		return nil, err
	}
	if len(res.Submissions) != len(tokens) {
		return nil, fmt.Errorf("judge returned %d results for %d tokens", len(res.Submissions), len(tokens))
	}

	out := make([]ExecutionResult, len(res.Submissions))
	for i, r := range res.Submissions {
		out[i] = normalizeJudge0(r)
	}
	return out, nil
}

func (c *Judge0Client) pollOne(ctx context.Context, token string) ExecutionResult {
	endpoint := c.baseURL + "/submissions/" + url.PathEscape(token) +
		"?base64_encoded=false&fields=" + judge0Fields

	for attempt := 1; attempt <= c.singlePollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return transportFailure(ctx.Err())
		case <-time.After(c.singlePollBaseDelay * time.Duration(attempt)):
		}

		var res judge0Result
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &res); err != nil {
			continue
		}
		if res.Status != nil && res.Status.ID > StatusIDProcessing {
			return normalizeJudge0(res)
		}
	}
	return transportFailure(fmt.Errorf("polling timed out for token %s", token))
}

func (c *Judge0Client) buildSubmission(req ExecutionRequest) (judge0Submission, error) {
	langID, ok := judge0LanguageIDs[strings.ToLower(req.Language)]
	if !ok {
		return judge0Submission{}, fmt.Errorf("unsupported language: %s", req.Language)
	}
	return judge0Submission{
		SourceCode: req.SourceCode,
		LanguageID: langID,
		Stdin:      req.Stdin,
	}, nil
}

func (c *Judge0Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("judge responded with %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeJudge0 maps a raw Judge0 payload onto ExecutionResult. Times come
// back as second strings and memory in kilobytes.
func normalizeJudge0(r judge0Result) ExecutionResult {
	out := ExecutionResult{}
	if r.Stdout != nil {
		out.Stdout = *r.Stdout
	}
	if r.Stderr != nil {
		out.Stderr = *r.Stderr
	}
	if r.CompileOutput != nil {
		out.CompileOutput = *r.CompileOutput
	}
	if r.Status != nil {
		out.Status = *r.Status
	}
	if r.Time != nil {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(*r.Time), 64); err == nil {
			out.TimeMillis = secs * 1000
		}
	}
	if r.Memory != nil {
		out.MemoryKb = int(*r.Memory)
	}
	switch {
	case r.ExitCode != nil:
		out.ExitStatusCode = *r.ExitCode
	case out.Status.ID == StatusIDAccepted:
		out.ExitStatusCode = 0
	default:
		out.ExitStatusCode = 1
	}
	return out
}
