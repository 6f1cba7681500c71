package mcp

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"deepresearch/internal/research"
)

// SessionState tracks the lifecycle of a research session.
type SessionState string

const (
	StateRunning SessionState = "running"
	StateDone    SessionState = "done"
	StateError   SessionState = "error"
)

// Session holds the state for one research run driven by MCP tool calls.
type Session struct {
	ID       string
	Question string

	mu     sync.Mutex
	state  SessionState
	result research.Result
	doneCh chan struct{}
	cancel context.CancelFunc

	ttlTimer *time.Timer
}

// NewSession spawns the research runner goroutine and returns immediately.
func NewSession(runner *research.Runner, question string) *Session {
	runCtx, runCancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:       fmt.Sprintf("s-%d", time.Now().UnixMilli()),
		Question: question,
		state:    StateRunning,
		doneCh:   make(chan struct{}),
		cancel:   runCancel,
	}
	go sess.run(runCtx, runner)
	return sess
}

func (s *Session) run(ctx context.Context, runner *research.Runner) {
	defer close(s.doneCh)
	defer s.cancel()

	res := runner.Run(ctx, s.Question)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	if res.Success {
		s.state = StateDone
	} else {
		s.state = StateError
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the run result; only meaningful once Done() has closed.
func (s *Session) Result() research.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Done returns a channel that closes when the run completes.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// Cancel terminates the runner goroutine and releases resources.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// SetTTL arms (or re-arms) the inactivity watchdog: a session untouched for
// ttl is cancelled so an abandoned client cannot pin the server forever.
func (s *Session) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttlTimer != nil {
		s.ttlTimer.Stop()
	}
	s.ttlTimer = time.AfterFunc(ttl, s.Cancel)
}

// Touch resets the TTL watchdog after client activity.
func (s *Session) Touch(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttlTimer != nil {
		s.ttlTimer.Reset(ttl)
	}
}

// WatchParent monitors for parent process death in a background goroutine
// and calls cancelFn when the parent PID changes, preventing zombie MCP
// server processes.
//
// It must NOT read from stdin — the MCP SDK's stdio transport owns stdin
// exclusively.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					cancelFn()
					return
				}
			}
		}
	}()
}
