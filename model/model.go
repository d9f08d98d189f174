// Package model defines the language-model provider contract consumed by the
// agents and orchestrators. Adapters for concrete APIs live in subpackages.
package model

import (
	"context"
	"fmt"
	"sync"
)

// Provider produces a completion for a prompt. Implementations must be safe
// for concurrent use.
type Provider interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	Info() string
}

// Mock is a scripted provider for tests and offline runs. Responses are
// served FIFO from the queue; when the queue is empty the canned default is
// returned. Prompts are recorded for assertions.
type Mock struct {
	mu      sync.Mutex
	queue   []string
	Default string
	Prompts []string
	// Err, when set, is returned by every Complete call.
	Err error
}

// NewMock builds a mock provider with a canned default response.
func NewMock(defaultResponse string) *Mock {
	return &Mock{Default: defaultResponse}
}

// Enqueue appends scripted responses served before the default.
func (m *Mock) Enqueue(responses ...string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
	return m
}

// Complete implements Provider.
func (m *Mock) Complete(ctx context.Context, prompt string, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Prompts = append(m.Prompts, prompt)
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}
	return m.Default, nil
}

// Info implements Provider.
func (m *Mock) Info() string { return "mock" }

// CallCount reports how many completions were served.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

var _ Provider = (*Mock)(nil)

// ErrNoProvider is returned by registries when a named provider is unknown.
var ErrNoProvider = fmt.Errorf("model: unknown provider")
