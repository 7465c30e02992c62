package mock

import (
	"context"
	"fmt"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, uses default echo behavior.
	GenerateFunc func(ctx context.Context, question string, passages []string) (string, error)

	callCount int
}

// NewMockGenerator creates a mock generator with default echo behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns a deterministic answer built from the question and
// the most relevant passage.
func (m *MockGenerator) Generate(ctx context.Context, question string, passages []string) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, question, passages)
	}

	if len(passages) == 0 {
		return "I don't have enough information to answer that.", nil
	}
	return fmt.Sprintf("Answer to %q based on: %s", question, passages[0]), nil
}

// ModelName identifies the mock model.
func (m *MockGenerator) ModelName() string {
	return "mock-generator"
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
}
