package textgen

import (
	"context"
	"strings"
)

// MockAdapter provides deterministic local replies when no backend is
// configured. It echoes a canned response, or the value registered for a
// prompt substring, which keeps tests free of canned-network plumbing.
type MockAdapter struct {
	replies map[string]string
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{replies: make(map[string]string)}
}

// Reply registers a canned response returned whenever the prompt contains
// match.
func (a *MockAdapter) Reply(match, text string) *MockAdapter {
	a.replies[match] = text
	return a
}

func (a *MockAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	for match, text := range a.replies {
		if strings.Contains(req.Prompt, match) {
			return Response{Text: text}, nil
		}
	}
	return Response{Text: "What would you like to do?"}, nil
}
