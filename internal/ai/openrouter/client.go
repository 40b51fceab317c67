// Package openrouter implements the ai.Provider contract against the
// OpenRouter chat completions API, with model fallback and retry/backoff.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shellward/shellward/internal/ai"
)

const (
	// DefaultBaseURL is the OpenRouter chat completions endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 25 * time.Second

	// maxRetries is the per-model attempt budget for transient failures.
	maxRetries = 3
)

// DefaultModels is the fallback order tried for each request. The first
// model to produce a usable command wins.
var DefaultModels = []string{
	"liquid/lfm-2.5-1.2b-thinking:free",
	"liquid/lfm-2.5-1.2b:free",
	"stepfun-ai/step-3.5-flash:free",
}

// systemPrompt aligns the model's output with the local validation rules:
// anything it produces outside these constraints will be denied, so the
// prompt spells the constraints out.
const systemPrompt = `You are a shell command assistant.
Your job: convert the user's natural-language request into EXACTLY ONE safe shell command.

OUTPUT FORMAT (MANDATORY):
- Output ONLY the raw command
- NO explanations, NO markdown, NO backticks
- Single line only
- DO NOT output multiple commands

SAFETY (CRITICAL):
- Your output is validated and blocked if it contains chaining, redirection, pipes, or suspicious tokens.
- NEVER include any of these: &&, ||, |, >, >>, <, ;, ^, %, .., $(), backticks, { }, [ ]
- NEVER output: cmd /c, powershell, curl, wget, del, erase, rd, rmdir, rm, format, shutdown, reg delete, diskpart, bcdedit, wmic, vssadmin, fsutil, takeown
- Do not attempt encoded or obfuscated commands (base64/hex blobs).

RISK POLICY:
- If the request is unsafe, destructive, illegal, privacy-invasive, or unclear, output EXACTLY:
  echo I cannot process that request

QUALITY:
- Prefer read-only, diagnostic commands that do not modify the system.
- Be specific and minimal: the single most direct command that satisfies the request.`

// Client calls the OpenRouter API. It is safe for sequential reuse; the
// interactive loop is single-request-at-a-time by design.
type Client struct {
	apiKey  string
	baseURL string
	models  []string
	http    *http.Client

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(time.Duration)
}

var _ ai.Provider = (*Client)(nil)

// NewClient creates a client with the default model fallback order.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	models := make([]string, len(DefaultModels))
	copy(models, DefaultModels)
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  models,
		http:    &http.Client{Timeout: timeout},
		sleep:   time.Sleep,
	}
}

// Models returns the current fallback order.
func (c *Client) Models() []string {
	out := make([]string, len(c.models))
	copy(out, c.models)
	return out
}

// PreferModel moves the named model to the front of the fallback order.
// Unknown names leave the order unchanged and return false.
func (c *Client) PreferModel(name string) bool {
	for i, m := range c.models {
		if m == name {
			reordered := append([]string{name}, append(append([]string{}, c.models[:i]...), c.models[i+1:]...)...)
			c.models = reordered
			return true
		}
	}
	return false
}

// GenerateCommand tries each model in order until one produces a usable
// single-line command. A 401 aborts immediately: the key is wrong for every
// model.
func (c *Client) GenerateCommand(ctx context.Context, input string) (ai.Generation, error) {
	var lastErr error
	for _, model := range c.models {
		payload := map[string]any{
			"model": model,
			"messages": []ai.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: input},
			},
			"temperature": 0.1,
		}

		data, err := c.postWithRetry(ctx, payload)
		if err != nil {
			if errors.Is(err, ai.ErrInvalidKey) {
				return ai.Generation{}, err
			}
			lastErr = err
			continue
		}

		command, err := extractCommand(data)
		if err != nil {
			lastErr = err
			continue
		}
		return ai.Generation{Command: command, Model: model}, nil
	}

	if lastErr == nil {
		lastErr = ai.ErrInvalidResponse
	}
	return ai.Generation{}, fmt.Errorf("all models failed: %w", lastErr)
}

// ValidateKey performs a minimal completion round trip.
func (c *Client) ValidateKey(ctx context.Context) error {
	payload := map[string]any{
		"model":       c.models[0],
		"messages":    []ai.Message{{Role: "user", Content: "echo key_validation"}},
		"temperature": 0.0,
		"max_tokens":  8,
	}
	_, err := c.postWithRetry(ctx, payload)
	return err
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// postWithRetry sends the request, retrying transient failures (429, 5xx,
// timeouts) with exponential backoff. 401 and other 4xx are permanent.
func (c *Client) postWithRetry(ctx context.Context, payload map[string]any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to marshal request: %w", err)
	}

	delay := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			c.sleep(delay)
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("openrouter: failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				lastErr = ai.ErrTimeout
				continue
			}
			lastErr = fmt.Errorf("openrouter: network failure: %w", err)
			continue
		}

		result, retry, err := decodeResponse(resp)
		if err == nil {
			return result, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// decodeResponse maps the HTTP status to the error taxonomy. retry reports
// whether the failure is transient.
func decodeResponse(resp *http.Response) (*apiResponse, bool, error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, ai.ErrInvalidKey
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, ai.ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("openrouter: server error (%d)", resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("openrouter: API error %d: %s", resp.StatusCode, string(body))
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ai.ErrInvalidResponse, err)
	}
	return &result, false, nil
}

// extractCommand pulls the first non-empty line out of the model output,
// collapsing internal whitespace.
func extractCommand(data *apiResponse) (string, error) {
	if len(data.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ai.ErrInvalidResponse)
	}
	content := data.Choices[0].Message.Content
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return "", fmt.Errorf("%w: empty command", ai.ErrInvalidResponse)
	}
	return line, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
