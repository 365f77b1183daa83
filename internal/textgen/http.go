package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/lexkit/internal/reliability"
)

const (
	httpMaxAttempts  = 3
	httpBackoffBase  = 200 * time.Millisecond
	httpBackoffLimit = 2 * time.Second
)

// HTTPAdapter forwards generation requests to a JSON-over-HTTP endpoint.
// The endpoint may answer with a JSON object carrying a text-like field or
// with the plain generated text. Transient upstream failures are retried
// with capped exponential backoff.
type HTTPAdapter struct {
	url    string
	client *http.Client
}

func NewHTTPAdapter(url string) *HTTPAdapter {
	return &HTTPAdapter{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (a *HTTPAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, &InvocationError{Backend: "http", Err: fmt.Errorf("marshal request: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt < httpMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, httpBackoffBase, httpBackoffLimit)):
			}
		}

		resp, retryable, err := a.generateOnce(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return Response{}, lastErr
}

func (a *HTTPAdapter) generateOnce(ctx context.Context, payload []byte) (Response, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, false, &InvocationError{Backend: "http", Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, false, &InvocationError{Backend: "http", Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Response{}, reliability.IsRetryableHTTPStatus(res.StatusCode), &InvocationError{
			Backend: "http",
			Err:     fmt.Errorf("status %d: %s", res.StatusCode, string(body)),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, false, &InvocationError{Backend: "http", Err: fmt.Errorf("read response: %w", err)}
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return Response{Text: strings.TrimSpace(string(body))}, false, nil
	}
	return Response{Text: extractText(obj)}, false, nil
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"text", "completion", "output", "message"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
