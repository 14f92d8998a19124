package mocks

import (
	"context"
	"sync"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/news"
)

// Mock headline source
type MockSource struct {
	Headlines []news.Headline
	Err       error

	mu    sync.Mutex
	calls int
}

func (m *MockSource) FetchHeadlines(ctx context.Context) ([]news.Headline, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Headlines, nil
}

func (m *MockSource) Name() string {
	return "mock-source"
}

func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
