package mock

import (
	"context"
	"sync"

	"github.com/poiesic/bidgrid/ai"
)

// MockModel is a test implementation of ai.Model.
type MockModel struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, req ai.Request) (string, error)

	mu        sync.Mutex
	responses []string
	requests  []ai.Request
	closed    bool
}

var _ ai.Model = (*MockModel)(nil)

// NewMockModel creates a new mock model with default behavior.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// WithGenerateFunc sets a custom function for Generate.
func (m *MockModel) WithGenerateFunc(fn func(ctx context.Context, req ai.Request) (string, error)) *MockModel {
	m.GenerateFunc = fn
	return m
}

// WithResponses queues canned responses returned in order.
func (m *MockModel) WithResponses(responses ...string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
	return m
}

// Generate records req and returns the scripted reply.
func (m *MockModel) Generate(ctx context.Context, req ai.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.GenerateFunc
	var next string
	queued := len(m.responses) > 0
	if queued {
		next = m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if queued {
		return next, nil
	}
	return "OK", nil
}

// Close marks the model closed.
func (m *MockModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCount returns the number of times Generate was called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or a zero Request.
func (m *MockModel) LastRequest() ai.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ai.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// Closed reports whether Close was called.
func (m *MockModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reset clears recorded calls, queued responses and GenerateFunc.
func (m *MockModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responses = nil
	m.GenerateFunc = nil
	m.closed = false
}
