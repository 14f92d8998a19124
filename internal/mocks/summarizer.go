package mocks

import (
	"context"
	"sync"
)

// Mock summarizer
type MockSummarizer struct {
	Summary string
	Err     error

	mu        sync.Mutex
	calls     int
	headlines []string
}

func (m *MockSummarizer) GenerateSummary(ctx context.Context, headlines []string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.headlines = append([]string(nil), headlines...)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Summary, nil
}

func (m *MockSummarizer) Name() string {
	return "mock-summarizer"
}

func (m *MockSummarizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Headlines returns the headlines passed to the last call.
func (m *MockSummarizer) Headlines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headlines
}
