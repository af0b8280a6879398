package ai

import (
	"context"
	"sync"
)

// Static is a Generator that always returns the same reply.
type Static struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []string
}

// Generate records the prompt and returns the canned reply.
func (s *Static) Generate(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.mu.Unlock()
	return s.Reply, s.Err
}

// Prompts returns every prompt seen so far.
func (s *Static) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
