package mock

import (
	"context"
	"sync"
)

// MockChatModel is a test double for ai.ChatModel.
type MockChatModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns Reply.
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

	// Reply is returned when CompleteFunc is nil.
	Reply string

	mu         sync.Mutex
	callCount  int
	lastPrompt string
}

// NewMockChatModel creates a mock chat model that answers with a fixed reply.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{Reply: "mock answer"}
}

// Complete records the prompt and returns the injected or fixed reply.
func (m *MockChatModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = prompt
	fn := m.CompleteFunc
	reply := m.Reply
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, prompt)
	}
	return reply, nil
}

// CallCount returns the number of Complete calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the user prompt of the most recent call.
func (m *MockChatModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}
