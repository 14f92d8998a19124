package mocks

import (
	"context"
	"sync"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
)

// Mock run recorder
type MockRecorder struct {
	Err error

	mu      sync.Mutex
	reports []*pipeline.Report
}

func (m *MockRecorder) Record(ctx context.Context, report *pipeline.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return m.Err
}

func (m *MockRecorder) Reports() []*pipeline.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pipeline.Report(nil), m.reports...)
}
