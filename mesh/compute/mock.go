package compute

import (
	"context"
	"sync"
)

// MockCompleter is a test implementation of Completer.
//
// Use it to exercise model-backed compute paths without network calls.
// It provides configurable responses, call history tracking, and error
// injection.
//
// Example usage:
//
//	mock := &compute.MockCompleter{
//	    Responses: [][]byte{[]byte("first"), []byte("second")},
//	}
//	fn := compute.FromCompleter(mock)
type MockCompleter struct {
	// Responses contains the sequence of results to return. Each call
	// returns the next response in order; when exhausted, the last
	// response repeats.
	Responses [][]byte

	// Err, if set, is returned instead of a response.
	Err error

	// Calls tracks the arguments of every Complete invocation.
	Calls [][][]byte

	mu        sync.Mutex
	callIndex int
}

// Complete implements the Completer interface.
func (m *MockCompleter) Complete(ctx context.Context, args [][]byte) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, args)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, nil
	}
	resp := m.Responses[m.callIndex]
	if m.callIndex < len(m.Responses)-1 {
		m.callIndex++
	}
	return resp, nil
}
