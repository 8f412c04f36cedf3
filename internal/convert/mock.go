package convert

import (
	"context"
	"sync"
)

// Call records one Convert invocation on a MockConverter.
type Call struct {
	LASPath string
	OutDir  string
}

// MockConverter is a test double that records calls and returns a canned
// result.
type MockConverter struct {
	mu    sync.Mutex
	calls []Call

	// Err, when set, is returned from every Convert call.
	Err error
}

// Convert records the call and echoes outDir on success.
func (m *MockConverter) Convert(_ context.Context, lasPath, outDir string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{LASPath: lasPath, OutDir: outDir})
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return outDir, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockConverter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
