package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/carbonlog/carbonlog/internal/advisor"
	"github.com/carbonlog/carbonlog/internal/dashboard"
	"github.com/carbonlog/carbonlog/internal/delta"
	"github.com/carbonlog/carbonlog/internal/record"
	"github.com/carbonlog/carbonlog/internal/usecase"
)

// Tracker is the set of operations exposed as tools.
type Tracker interface {
	Register(ctx context.Context, username, sector string) (usecase.User, error)
	Login(ctx context.Context, username string) (usecase.User, error)
	Append(ctx context.Context, username string, raw []byte) error
	History(ctx context.Context, username string) ([]record.Record, error)
	Dashboard(ctx context.Context, username string) (dashboard.Data, error)
	Advise(ctx context.Context, username, message string) (advisor.Reply, error)
}

// Server wraps the MCP server with carbonlog tools
type Server struct {
	server  *mcp.Server
	tracker Tracker
}

// NewServer creates a new MCP server instance
func NewServer(tracker Tracker, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "carbonlog",
		Version: version,
	}, nil)

	s := &Server{
		server:  mcpServer,
		tracker: tracker,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "carbon_register",
		Description: "Register an organisation with its sector and create its empty emission log",
	}, s.handleRegister)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "carbon_login",
		Description: "Look up a registered organisation and its sector",
	}, s.handleLogin)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "carbon_append",
		Description: "Append a weekly emission record for a registered organisation",
	}, s.handleAppend)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "carbon_history",
		Description: "List every stored emission record in submission order",
	}, s.handleHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "carbon_dashboard",
		Description: "Show the latest record, recent history and the largest changes since the previous record",
	}, s.handleDashboard)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "carbon_advise",
		Description: "Ask the reduction advisor a question about the latest record",
	}, s.handleAdvise)
}

// Input/Output types for each tool

type UsernameInput struct {
	Username string `json:"username" jsonschema:"The registered organisation name"`
}

type RegisterInput struct {
	Username string `json:"username" jsonschema:"The organisation name to register"`
	Sector   string `json:"sector" jsonschema:"The industry sector of the organisation"`
}

type UserOutput struct {
	Username string `json:"username"`
	Sector   string `json:"sector"`
}

type AppendInput struct {
	Username string         `json:"username" jsonschema:"The registered organisation name"`
	Entry    map[string]any `json:"entry" jsonschema:"The emission record with date, sector and calculations"`
}

type AppendOutput struct {
	Message string `json:"message"`
}

type HistoryOutput struct {
	Entries []map[string]any `json:"entries"`
}

type DashboardOutput struct {
	Latest       map[string]any   `json:"latestEntry,omitempty"`
	Previous     map[string]any   `json:"previousEntry,omitempty"`
	History      []map[string]any `json:"history"`
	TotalDelta   float64          `json:"totalDelta"`
	TopIncreases []ChangeOutput   `json:"topIncreases"`
	TopDecreases []ChangeOutput   `json:"topDecreases"`
}

type ChangeOutput struct {
	Key      string  `json:"key"`
	Delta    float64 `json:"delta"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

type AdviseInput struct {
	Username string `json:"username" jsonschema:"The registered organisation name"`
	Message  string `json:"message" jsonschema:"The question for the advisor"`
}

type AdviseOutput struct {
	Reply     string             `json:"reply"`
	Citations []advisor.Citation `json:"citations"`
	Fallback  bool               `json:"fallback"`
}

// Tool handlers

func (s *Server) handleRegister(ctx context.Context, req *mcp.CallToolRequest, input RegisterInput) (*mcp.CallToolResult, UserOutput, error) {
	user, err := s.tracker.Register(ctx, input.Username, input.Sector)
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("failed to register: %w", err)
	}
	return nil, UserOutput(user), nil
}

func (s *Server) handleLogin(ctx context.Context, req *mcp.CallToolRequest, input UsernameInput) (*mcp.CallToolResult, UserOutput, error) {
	user, err := s.tracker.Login(ctx, input.Username)
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("failed to look up %q: %w", input.Username, err)
	}
	return nil, UserOutput(user), nil
}

func (s *Server) handleAppend(ctx context.Context, req *mcp.CallToolRequest, input AppendInput) (*mcp.CallToolResult, AppendOutput, error) {
	if input.Entry == nil {
		return nil, AppendOutput{}, fmt.Errorf("entry is required")
	}
	raw, err := json.Marshal(input.Entry)
	if err != nil {
		return nil, AppendOutput{}, fmt.Errorf("failed to encode entry: %w", err)
	}
	if err := s.tracker.Append(ctx, input.Username, raw); err != nil {
		return nil, AppendOutput{}, fmt.Errorf("failed to append: %w", err)
	}
	return nil, AppendOutput{Message: "Data saved"}, nil
}

func (s *Server) handleHistory(ctx context.Context, req *mcp.CallToolRequest, input UsernameInput) (*mcp.CallToolResult, HistoryOutput, error) {
	records, err := s.tracker.History(ctx, input.Username)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to read history: %w", err)
	}
	entries, err := documents(records)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{Entries: entries}, nil
}

func (s *Server) handleDashboard(ctx context.Context, req *mcp.CallToolRequest, input UsernameInput) (*mcp.CallToolResult, DashboardOutput, error) {
	data, err := s.tracker.Dashboard(ctx, input.Username)
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to build dashboard: %w", err)
	}

	history, err := documents(data.History)
	if err != nil {
		return nil, DashboardOutput{}, err
	}
	out := DashboardOutput{
		History:      history,
		TotalDelta:   data.Deltas.TotalDelta.InexactFloat64(),
		TopIncreases: changes(data.Deltas.TopIncreases),
		TopDecreases: changes(data.Deltas.TopDecreases),
	}
	if data.Latest != nil {
		if out.Latest, err = data.Latest.Document(); err != nil {
			return nil, DashboardOutput{}, err
		}
	}
	if data.Previous != nil {
		if out.Previous, err = data.Previous.Document(); err != nil {
			return nil, DashboardOutput{}, err
		}
	}
	return nil, out, nil
}

func (s *Server) handleAdvise(ctx context.Context, req *mcp.CallToolRequest, input AdviseInput) (*mcp.CallToolResult, AdviseOutput, error) {
	reply, err := s.tracker.Advise(ctx, input.Username, input.Message)
	if err != nil {
		return nil, AdviseOutput{}, fmt.Errorf("failed to get advice: %w", err)
	}
	citations := reply.Citations
	if citations == nil {
		citations = []advisor.Citation{}
	}
	return nil, AdviseOutput{Reply: reply.Text, Citations: citations, Fallback: reply.Fallback}, nil
}

func documents(records []record.Record) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		doc, err := rec.Document()
		if err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func changes(in []delta.Change) []ChangeOutput {
	out := make([]ChangeOutput, 0, len(in))
	for _, c := range in {
		out = append(out, ChangeOutput{
			Key:      c.Key,
			Delta:    c.Delta.InexactFloat64(),
			Current:  c.Current.InexactFloat64(),
			Previous: c.Previous.InexactFloat64(),
		})
	}
	return out
}
