// Package mcp exposes the research loop over the Model Context Protocol:
// an agent starts a run, polls its status, and fetches the finished report.
package mcp

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"deepresearch/internal/format"
	"deepresearch/internal/logging"
	"deepresearch/internal/research"
)

// DefaultSessionTTL is the inactivity window before an abandoned session is
// cancelled.
var DefaultSessionTTL = 10 * time.Minute

// RunnerFactory builds a research runner for one session. The serve command
// decides whether it is backed by real collaborators or a scenario.
type RunnerFactory func(scenario string) (*research.Runner, error)

// Server wraps the MCP SDK server and manages a single research session.
type Server struct {
	MCPServer *sdkmcp.Server

	newRunner RunnerFactory

	mu      sync.Mutex
	session *Session
}

// NewServer creates the MCP server with the research tools registered.
func NewServer(factory RunnerFactory) *Server {
	s := &Server{newRunner: factory}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "deepresearch", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "start_research",
		Description: "Start a research run for a question. Spawns the runner goroutine and returns a session ID.",
	}, s.handleStartResearch)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_status",
		Description: "Get the state of the current research session: round, fact count, and budget usage.",
	}, s.handleGetStatus)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Get the final markdown report and manifest path. Blocks until the run completes.",
	}, s.handleGetReport)
}

// --- Tool input/output types ---

type startResearchInput struct {
	Question string `json:"question" jsonschema:"the research question"`
	Scenario string `json:"scenario,omitempty" jsonschema:"offline scenario name for a scripted run"`
	Force    bool   `json:"force,omitempty" jsonschema:"cancel any existing session and start fresh"`
}

type startResearchOutput struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Status    string `json:"status"`
}

type getStatusInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_research"`
}

type getStatusOutput struct {
	Status     string `json:"status"`
	Round      int    `json:"round"`
	FactCount  int    `json:"fact_count"`
	TokensUsed int    `json:"tokens_used"`
	Decision   string `json:"decision,omitempty"`
	Error      string `json:"error,omitempty"`
}

type getReportInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_research"`
}

type getReportOutput struct {
	Status       string `json:"status"`
	Report       string `json:"report,omitempty"`
	ReportPath   string `json:"report_path,omitempty"`
	ManifestPath string `json:"manifest_path,omitempty"`
	TokensUsed   string `json:"tokens_used,omitempty"`
	Error        string `json:"error,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleStartResearch(_ context.Context, _ *sdkmcp.CallToolRequest, input startResearchInput) (*sdkmcp.CallToolResult, startResearchOutput, error) {
	logger := logging.New("mcp-session")
	if input.Question == "" && input.Scenario == "" {
		return nil, startResearchOutput{}, fmt.Errorf("question is required")
	}

	s.mu.Lock()
	if s.session != nil {
		select {
		case <-s.session.Done():
			logger.Info("replacing finished session", "old_id", s.session.ID)
			s.session.Cancel()
		default:
			if input.Force {
				logger.Warn("force-replacing active session", "old_id", s.session.ID)
				s.session.Cancel()
			} else {
				s.mu.Unlock()
				return nil, startResearchOutput{}, fmt.Errorf("a research session is already running (id=%s)", s.session.ID)
			}
		}
	}
	s.session = nil
	s.mu.Unlock()

	runner, err := s.newRunner(input.Scenario)
	if err != nil {
		return nil, startResearchOutput{}, fmt.Errorf("start research: %w", err)
	}

	sess := NewSession(runner, input.Question)
	sess.SetTTL(DefaultSessionTTL)

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	logger.Info("session started", "id", sess.ID, "question", sess.Question)
	return nil, startResearchOutput{
		SessionID: sess.ID,
		Question:  sess.Question,
		Status:    string(StateRunning),
	}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *sdkmcp.CallToolRequest, input getStatusInput) (*sdkmcp.CallToolResult, getStatusOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getStatusOutput{}, err
	}
	sess.Touch(DefaultSessionTTL)

	res := sess.Result()
	out := getStatusOutput{
		Status:     string(sess.State()),
		Round:      res.Round,
		FactCount:  res.FactCount,
		TokensUsed: res.TokensUsed,
		Error:      res.Error,
	}
	if res.Decision.Action != "" {
		out.Decision = string(res.Decision.Action)
	}
	return nil, out, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getReportOutput{}, err
	}
	sess.Touch(DefaultSessionTTL)

	select {
	case <-sess.Done():
	case <-ctx.Done():
		return nil, getReportOutput{}, ctx.Err()
	}

	res := sess.Result()
	if !res.Success {
		return nil, getReportOutput{
			Status: string(StateError),
			Error:  res.Error,
		}, nil
	}

	md, err := os.ReadFile(res.ReportPath)
	if err != nil {
		return nil, getReportOutput{}, fmt.Errorf("read report: %w", err)
	}

	return nil, getReportOutput{
		Status:       string(StateDone),
		Report:       string(md),
		ReportPath:   res.ReportPath,
		ManifestPath: res.ManifestPath,
		TokensUsed:   format.FmtTokens(res.TokensUsed),
	}, nil
}

// SessionID returns the current session's ID, or empty string if none.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session.ID
	}
	return ""
}

// Shutdown cancels any active session, releasing the runner goroutine.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Cancel()
		s.session = nil
	}
}

func (s *Server) getSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("no active session (call start_research first)")
	}
	if s.session.ID != id {
		return nil, fmt.Errorf("session_id mismatch: have %s, got %s", s.session.ID, id)
	}
	return s.session, nil
}
