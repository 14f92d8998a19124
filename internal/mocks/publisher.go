package mocks

import (
	"context"
	"sync"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/publisher"
)

// Mock publisher
type MockPublisher struct {
	Result *publisher.Result
	Err    error

	mu    sync.Mutex
	texts []string
}

func (m *MockPublisher) Publish(ctx context.Context, text string) (*publisher.Result, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		r := *m.Result
		if r.Text == "" {
			r.Text = text
		}
		return &r, nil
	}
	return &publisher.Result{ID: "1", Text: text, Provider: "mock"}, nil
}

func (m *MockPublisher) Name() string {
	return "mock-publisher"
}

// Texts returns every text passed to Publish.
func (m *MockPublisher) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
