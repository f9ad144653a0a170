// Package mcpserver exposes the practice engine as Model Context Protocol
// tools so an assistant can generate voice sessions and score answers.
//
// Tools:
//   - "generate_session" turns a question id into a voice session, or
//     reports available=false when the question is too thin to practise.
//   - "evaluate_answer" scores an answer against one micro-question of the
//     session generated from a question id. Nothing is persisted.
//   - "search_questions" fuzzy-searches the question bank (only when a
//     catalog is configured).
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/internal/session"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

const (
	ToolGenerateSession = "generate_session"
	ToolEvaluateAnswer  = "evaluate_answer"
	ToolSearchQuestions = "search_questions"

	defaultSearchLimit = 10
)

// Searcher finds questions by free text.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []practice.Question
}

// Option configures a [Server].
type Option func(*Server)

// WithSearcher enables the search_questions tool.
func WithSearcher(s Searcher) Option {
	return func(srv *Server) {
		srv.searcher = s
	}
}

// WithMetrics records tool calls on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(srv *Server) {
		srv.metrics = m
	}
}

// WithVersion sets the server version advertised during initialisation.
func WithVersion(v string) Option {
	return func(srv *Server) {
		srv.version = v
	}
}

// Server wraps an [mcp.Server] with the practice tools registered.
type Server struct {
	practice *session.Practice
	searcher Searcher
	metrics  *observe.Metrics
	version  string
	server   *mcp.Server
}

type generateArgs struct {
	QuestionID string `json:"question_id" jsonschema:"id of the source interview question"`
}

type generateResult struct {
	Available bool                   `json:"available"`
	Reason    string                 `json:"reason,omitempty"`
	Session   *practice.VoiceSession `json:"session,omitempty"`
}

type evaluateArgs struct {
	QuestionID string `json:"question_id" jsonschema:"id of the source interview question"`
	Order      int    `json:"order" jsonschema:"1-based position of the micro-question in the generated session"`
	Answer     string `json:"answer" jsonschema:"the learner's transcribed answer"`
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"free text matched against question text, tags and keywords"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of questions to return (default 10)"`
}

type searchResult struct {
	Questions []practice.Question `json:"questions"`
}

// New creates a Server backed by p.
func New(p *session.Practice, opts ...Option) *Server {
	s := &Server{
		practice: p,
		version:  "dev",
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	s.server = mcp.NewServer(&mcp.Implementation{Name: "voxdrill", Version: s.version}, nil)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGenerateSession,
		Description: "Break a long-form interview question into a short voice practice session of keyword-scoped micro-questions.",
	}, s.generateSession)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolEvaluateAnswer,
		Description: "Score a spoken answer against one micro-question by keyword coverage and return feedback.",
	}, s.evaluateAnswer)
	if s.searcher != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        ToolSearchQuestions,
			Description: "Fuzzy-search the interview question bank.",
		}, s.searchQuestions)
	}
	return s
}

// MCP returns the underlying SDK server, for callers that bring their own
// transport.
func (s *Server) MCP() *mcp.Server { return s.server }

// Run serves over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("mcp server listening on stdio", "version", s.version)
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: run: %w", err)
	}
	return nil
}

func (s *Server) generateSession(ctx context.Context, _ *mcp.CallToolRequest, args generateArgs) (*mcp.CallToolResult, any, error) {
	if args.QuestionID == "" {
		return s.fail(ctx, ToolGenerateSession, errors.New("question_id is required"))
	}
	vs, err := s.practice.Preview(ctx, args.QuestionID)
	switch {
	case errors.Is(err, session.ErrNotPracticable):
		return s.ok(ctx, ToolGenerateSession, generateResult{
			Available: false,
			Reason:    "question has too few voice keywords to practise",
		})
	case err != nil:
		return s.fail(ctx, ToolGenerateSession, err)
	}
	return s.ok(ctx, ToolGenerateSession, generateResult{Available: true, Session: &vs})
}

func (s *Server) evaluateAnswer(ctx context.Context, _ *mcp.CallToolRequest, args evaluateArgs) (*mcp.CallToolResult, any, error) {
	if args.QuestionID == "" {
		return s.fail(ctx, ToolEvaluateAnswer, errors.New("question_id is required"))
	}
	answer, err := s.practice.Evaluate(ctx, args.QuestionID, args.Order, args.Answer)
	if err != nil {
		return s.fail(ctx, ToolEvaluateAnswer, err)
	}
	return s.ok(ctx, ToolEvaluateAnswer, answer)
}

func (s *Server) searchQuestions(ctx context.Context, _ *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, any, error) {
	limit := args.Limit
	if limit < 1 {
		limit = defaultSearchLimit
	}
	qs := s.searcher.Search(ctx, args.Query, limit)
	if qs == nil {
		qs = []practice.Question{}
	}
	return s.ok(ctx, ToolSearchQuestions, searchResult{Questions: qs})
}

// ok returns v as the JSON text content of a successful tool result.
func (s *Server) ok(ctx context.Context, tool string, v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return s.fail(ctx, tool, fmt.Errorf("encode result: %w", err))
	}
	s.metrics.RecordToolCall(ctx, tool, "ok")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// fail reports err to the client as a tool error rather than a protocol
// error so the caller can recover.
func (s *Server) fail(ctx context.Context, tool string, err error) (*mcp.CallToolResult, any, error) {
	s.metrics.RecordToolCall(ctx, tool, "error")
	slog.Debug("mcp tool call failed", "tool", tool, "error", err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, nil, nil
}
