package testutil

import (
	"context"
	"strings"
	"sync"

	"worktreectl/internal/errors"
)

// RunnerResponse is the scripted result for one command line
type RunnerResponse struct {
	Output string
	Err    bool
}

// FakeRunner is a scripted executor.Runner. Commands are matched on their full
// command line; unmatched commands fail unless Handler answers them.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]RunnerResponse
	// Handler answers command lines with no queued response
	Handler func(commandLine string) (RunnerResponse, bool)
	calls   []string
}

// NewFakeRunner creates an empty scripted runner
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string][]RunnerResponse)}
}

// On queues output for a command line. The last queued response repeats.
func (f *FakeRunner) On(commandLine, output string) *FakeRunner {
	return f.add(commandLine, RunnerResponse{Output: output})
}

// Fail queues a nonzero exit for a command line
func (f *FakeRunner) Fail(commandLine string) *FakeRunner {
	return f.add(commandLine, RunnerResponse{Err: true})
}

// FailWith queues a nonzero exit that also produced output
func (f *FakeRunner) FailWith(commandLine, output string) *FakeRunner {
	return f.add(commandLine, RunnerResponse{Output: output, Err: true})
}

func (f *FakeRunner) add(commandLine string, r RunnerResponse) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[commandLine] = append(f.responses[commandLine], r)
	return f
}

// Calls returns every command line run so far, in order
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many times a command line ran
func (f *FakeRunner) Count(commandLine string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == commandLine {
			n++
		}
	}
	return n
}

// Called reports whether a command line ran
func (f *FakeRunner) Called(commandLine string) bool {
	return f.Count(commandLine) > 0
}

// CalledWithPrefix reports whether any command line starting with prefix ran
func (f *FakeRunner) CalledWithPrefix(prefix string) bool {
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))

	f.mu.Lock()
	f.calls = append(f.calls, commandLine)
	queue, ok := f.responses[commandLine]
	var resp RunnerResponse
	if ok && len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[commandLine] = queue[1:]
		}
	}
	handler := f.Handler
	f.mu.Unlock()

	if !ok && handler != nil {
		resp, ok = handler(commandLine)
	}
	if !ok || resp.Err {
		return resp.Output, errors.CommandFailed(commandLine, 1, resp.Output, nil)
	}
	return resp.Output, nil
}

func (f *FakeRunner) RunSafe(ctx context.Context, name string, args ...string) (string, bool) {
	out, err := f.Run(ctx, name, args...)
	if err != nil {
		return "", false
	}
	return out, true
}
