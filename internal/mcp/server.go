// internal/mcp/server.go
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/colebrumley/interruptd/internal/engine"
	"github.com/colebrumley/interruptd/internal/signal"
	"github.com/colebrumley/interruptd/internal/store"
	"github.com/colebrumley/interruptd/internal/trigger"
)

// Server exposes the trigger engine to an AI assistant over MCP, so the
// assistant can inspect its own interruption triggers and report how the
// user reacted.
type Server struct {
	st     *store.Store
	eng    *engine.Engine
	server *mcp.Server
}

// ListTriggersInput is the input schema for the list_triggers tool
type ListTriggersInput struct{}

// TriggerInfo is a single trigger in list results
type TriggerInfo struct {
	TriggerID   string `json:"trigger_id"`
	Kind        string `json:"kind"`
	Priority    int    `json:"priority"`
	Cooldown    string `json:"cooldown"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// ListTriggersOutput is the output schema for the list_triggers tool
type ListTriggersOutput struct {
	Triggers []TriggerInfo `json:"triggers"`
	Count    int           `json:"count"`
}

// StatisticsInput is the input schema for the trigger_statistics tool
type StatisticsInput struct {
	Days int `json:"days,omitempty" jsonschema:"Window in days (default 7)"`
}

// FeedbackInput is the input schema for the record_feedback tool
type FeedbackInput struct {
	TriggerID string `json:"trigger_id" jsonschema:"Trigger the user reacted to"`
	Outcome   string `json:"outcome" jsonschema:"One of: accepted, ignored, dismissed"`
	LatencyMs int64  `json:"latency_ms,omitempty" jsonschema:"How long the user took to react, in milliseconds"`
}

// FeedbackOutput is the output schema for the record_feedback tool
type FeedbackOutput struct {
	Message string `json:"message"`
}

// NewServer creates a new MCP server over the trigger database
func NewServer(dbPath string, logger *slog.Logger) (*Server, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening trigger database: %w", err)
	}

	catalog := trigger.NewCatalog(st, logger)
	if err := catalog.Restore(); err != nil {
		st.Close()
		return nil, fmt.Errorf("restoring triggers: %w", err)
	}

	s := &Server{
		st:  st,
		eng: engine.New(catalog, st, signal.Sources{}, nil, logger, engine.Options{}),
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "interruptd",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_triggers",
		Description: "List the proactive interaction triggers the engine currently knows, with their priority, cooldown, and enabled state.",
	}, s.handleListTriggers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trigger_statistics",
		Description: "Summarize recent proactive interaction decisions: counts per trigger and how users responded to each trigger historically.",
	}, s.handleStatistics)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_feedback",
		Description: "Report how the user reacted to the most recent proactive interaction from a trigger. Outcomes: accepted, ignored, dismissed. The engine adapts the trigger's cooldown from this.",
	}, s.handleFeedback)

	s.server = server
	return s, nil
}

func (s *Server) handleListTriggers(ctx context.Context, req *mcp.CallToolRequest, input ListTriggersInput) (*mcp.CallToolResult, ListTriggersOutput, error) {
	snaps := s.eng.ListTriggers()
	out := ListTriggersOutput{Count: len(snaps)}
	for _, snap := range snaps {
		def := snap.Definition
		out.Triggers = append(out.Triggers, TriggerInfo{
			TriggerID:   def.ID,
			Kind:        string(def.Kind),
			Priority:    def.Priority,
			Cooldown:    def.Cooldown.String(),
			Enabled:     def.Enabled,
			Description: def.Description,
		})
	}
	return nil, out, nil
}

func (s *Server) handleStatistics(ctx context.Context, req *mcp.CallToolRequest, input StatisticsInput) (*mcp.CallToolResult, *engine.Statistics, error) {
	stats, err := s.eng.TriggerStatistics(input.Days)
	if err != nil {
		return nil, nil, fmt.Errorf("loading statistics: %w", err)
	}
	return nil, stats, nil
}

func (s *Server) handleFeedback(ctx context.Context, req *mcp.CallToolRequest, input FeedbackInput) (*mcp.CallToolResult, FeedbackOutput, error) {
	latency := time.Duration(input.LatencyMs) * time.Millisecond
	if err := s.eng.RecordUserFeedback(input.TriggerID, input.Outcome, latency); err != nil {
		return nil, FeedbackOutput{}, err
	}
	return nil, FeedbackOutput{
		Message: fmt.Sprintf("Recorded %s for trigger %s", input.Outcome, input.TriggerID),
	}, nil
}

// Run starts the MCP server on stdio
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close closes the engine and database connection
func (s *Server) Close() error {
	s.eng.Close()
	return s.st.Close()
}
