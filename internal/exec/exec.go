// Package exec runs external commands behind a narrow capability
// interface so command-driven services can be exercised with canned
// responses in tests.
package exec

import (
	"bytes"
	"context"
	"fmt"
	osexec "os/exec"
	"slices"
	"strings"
	"sync"
)

// CommandExecutor runs external commands. All methods block until the
// command exits; dir is the working directory (empty means inherit).
type CommandExecutor interface {
	// Run executes the command and returns stdout and stderr separately.
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)
	// Output executes the command and returns its stdout.
	Output(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	// CombinedOutput executes the command and returns interleaved stdout and stderr.
	CombinedOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// RealExecutor executes commands with os/exec.
type RealExecutor struct{}

// NewRealExecutor returns an executor backed by os/exec.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

func (e *RealExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (e *RealExecutor) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	stdout, _, err := e.Run(ctx, dir, name, args...)
	return stdout, err
}

func (e *RealExecutor) CombinedOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// MockResponse is the canned result for a matched command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// Call records one command dispatched to a MockExecutor.
type Call struct {
	Dir  string
	Name string
	Args []string
}

type mockRule struct {
	name   string
	args   []string
	prefix bool
	resp   MockResponse
}

// MockExecutor returns canned responses for registered commands and
// records every call. Unmatched commands are delegated to the fallback
// executor when one is provided, otherwise they fail.
type MockExecutor struct {
	mu       sync.Mutex
	rules    []mockRule
	calls    []Call
	fallback CommandExecutor
}

// NewMockExecutor returns a mock executor. fallback may be nil, in
// which case unmatched commands return an error.
func NewMockExecutor(fallback CommandExecutor) *MockExecutor {
	return &MockExecutor{fallback: fallback}
}

// AddExactMatch registers a response for a command whose arguments
// match exactly.
func (m *MockExecutor) AddExactMatch(name string, args []string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{name: name, args: args, resp: resp})
}

// AddPrefixMatch registers a response for a command whose arguments
// begin with the given prefix.
func (m *MockExecutor) AddPrefixMatch(name string, argsPrefix []string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{name: name, args: argsPrefix, prefix: true, resp: resp})
}

// Calls returns a copy of every call dispatched so far.
func (m *MockExecutor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockExecutor) match(dir, name string, args []string) (MockResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	// Later rules win so tests can override earlier registrations.
	for i := len(m.rules) - 1; i >= 0; i-- {
		r := m.rules[i]
		if r.name != name {
			continue
		}
		if r.prefix {
			if len(args) >= len(r.args) && slices.Equal(args[:len(r.args)], r.args) {
				return r.resp, true
			}
			continue
		}
		if slices.Equal(args, r.args) {
			return r.resp, true
		}
	}
	return MockResponse{}, false
}

func (m *MockExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	if resp, ok := m.match(dir, name, args); ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}
	if m.fallback != nil {
		return m.fallback.Run(ctx, dir, name, args...)
	}
	return nil, nil, fmt.Errorf("exec: no mock response for %s %s", name, strings.Join(args, " "))
}

func (m *MockExecutor) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	stdout, _, err := m.Run(ctx, dir, name, args...)
	return stdout, err
}

func (m *MockExecutor) CombinedOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	stdout, stderr, err := m.Run(ctx, dir, name, args...)
	return append(append([]byte(nil), stdout...), stderr...), err
}
