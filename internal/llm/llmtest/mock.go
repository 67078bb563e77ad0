// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/smart-intake/internal/llm"
)

// MockClient implements llm.Client for testing
type MockClient struct {
	GenerateContentFunc func(ctx context.Context, system, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, system, prompt string, tier llm.ModelTier) (string, error)

	mu      sync.Mutex
	Prompts []string
}

// Returning builds a mock whose generate calls always return text
func Returning(text string) *MockClient {
	fn := func(context.Context, string, string, llm.ModelTier) (string, error) { return text, nil }
	return &MockClient{GenerateContentFunc: fn, GenerateJSONFunc: fn}
}

// Failing builds a mock whose generate calls always return err
func Failing(err error) *MockClient {
	fn := func(context.Context, string, string, llm.ModelTier) (string, error) { return "", err }
	return &MockClient{GenerateContentFunc: fn, GenerateJSONFunc: fn}
}

func (m *MockClient) record(prompt string) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
}

// LastPrompt returns the most recent user prompt
func (m *MockClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}

func (m *MockClient) GenerateContent(ctx context.Context, system, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, system, prompt, tier)
	}
	return "", nil
}

func (m *MockClient) GenerateJSON(ctx context.Context, system, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, system, prompt, tier)
	}
	return "{}", nil
}

func (m *MockClient) GetModel(llm.ModelTier) string {
	return "mock-model"
}

func (m *MockClient) Close() error {
	return nil
}
