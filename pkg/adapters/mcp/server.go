// Package mcp exposes a pipeline run as Model Context Protocol tools so an
// agent can drive it directly.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/gantry/internal/presentation/graph"
	"github.com/aretw0/gantry/internal/state"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const graphURI = "gantry://pipeline/graph"

// Session is the run surface the tools drive. *gantry.Session satisfies it.
type Session interface {
	Pipeline() domain.Pipeline
	State() domain.PipelineState
	Overview() state.Summary
	Summary() string
	Next() []domain.Slot
	Begin(ctx context.Context, slotID, agentID, prompt string) (domain.SlotState, error)
	Complete(ctx context.Context, slotID string) (domain.SlotState, error)
	Fail(ctx context.Context, slotID, reason string) (domain.SlotState, error)
	Skip(ctx context.Context, slotID string) (domain.SlotState, error)
}

// StatusResult is returned by pipeline_status.
type StatusResult struct {
	Summary  string               `json:"summary" jsonschema_description:"Human-readable progress report"`
	Overview state.Summary        `json:"overview" jsonschema_description:"Slot ids grouped by status"`
	State    domain.PipelineState `json:"state" jsonschema_description:"Full run state"`
}

// NextResult is returned by next_slots.
type NextResult struct {
	Slots []domain.Slot `json:"slots" jsonschema_description:"Slots ready to begin, in declaration order"`
}

// SlotArgs are the arguments of the slot tools.
type SlotArgs struct {
	SlotID      string `json:"slot_id"`
	AgentID     string `json:"agent_id,omitempty"`
	AgentPrompt string `json:"agent_prompt,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Server wraps a Session as an MCP server.
type Server struct {
	session   Session
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(session Session, version string) *Server {
	s := &Server{
		session:   session,
		mcpServer: server.NewMCPServer("gantry-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("pipeline_status",
		mcp.WithDescription("Report the status of the pipeline run and every slot."),
		mcp.WithOutputSchema[StatusResult](),
	), mcp.NewStructuredToolHandler(s.handleStatus))

	s.mcpServer.AddTool(mcp.NewTool("next_slots",
		mcp.WithDescription("List the slots whose dependencies are satisfied and that can begin now."),
		mcp.WithOutputSchema[NextResult](),
	), mcp.NewStructuredToolHandler(s.handleNext))

	s.mcpServer.AddTool(mcp.NewTool("begin_slot",
		mcp.WithDescription("Check a slot's pre-conditions and start it. A failed pre-condition fails the slot."),
		mcp.WithString("slot_id", mcp.Required(), mcp.Description("Slot to begin")),
		mcp.WithString("agent_id", mcp.Description("Agent working on the slot")),
		mcp.WithString("agent_prompt", mcp.Description("Prompt file given to the agent")),
		mcp.WithOutputSchema[domain.SlotState](),
	), mcp.NewStructuredToolHandler(s.handleBegin))

	s.mcpServer.AddTool(mcp.NewTool("complete_slot",
		mcp.WithDescription("Check a slot's post-conditions and complete it, or fail it if they do not hold."),
		mcp.WithString("slot_id", mcp.Required(), mcp.Description("Slot to complete")),
		mcp.WithOutputSchema[domain.SlotState](),
	), mcp.NewStructuredToolHandler(s.handleComplete))

	s.mcpServer.AddTool(mcp.NewTool("fail_slot",
		mcp.WithDescription("Mark a slot as failed."),
		mcp.WithString("slot_id", mcp.Required(), mcp.Description("Slot to fail")),
		mcp.WithString("error", mcp.Required(), mcp.Description("Why the slot failed")),
		mcp.WithOutputSchema[domain.SlotState](),
	), mcp.NewStructuredToolHandler(s.handleFail))

	s.mcpServer.AddTool(mcp.NewTool("skip_slot",
		mcp.WithDescription("Mark a slot as skipped without evaluating any gate."),
		mcp.WithString("slot_id", mcp.Required(), mcp.Description("Slot to skip")),
		mcp.WithOutputSchema[domain.SlotState](),
	), mcp.NewStructuredToolHandler(s.handleSkip))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Pipeline Graph",
		mcp.WithResourceDescription("Mermaid flowchart of the pipeline, styled by slot status"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		st := s.session.State()
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.session.Pipeline(), &st),
			},
		}, nil
	})
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (StatusResult, error) {
	return StatusResult{
		Summary:  s.session.Summary(),
		Overview: s.session.Overview(),
		State:    s.session.State(),
	}, nil
}

func (s *Server) handleNext(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (NextResult, error) {
	slots := s.session.Next()
	if slots == nil {
		slots = []domain.Slot{}
	}
	return NextResult{Slots: slots}, nil
}

func (s *Server) handleBegin(ctx context.Context, request mcp.CallToolRequest, args SlotArgs) (domain.SlotState, error) {
	if err := requireSlot(args); err != nil {
		return domain.SlotState{}, err
	}
	return s.session.Begin(ctx, args.SlotID, args.AgentID, args.AgentPrompt)
}

func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest, args SlotArgs) (domain.SlotState, error) {
	if err := requireSlot(args); err != nil {
		return domain.SlotState{}, err
	}
	return s.session.Complete(ctx, args.SlotID)
}

func (s *Server) handleFail(ctx context.Context, request mcp.CallToolRequest, args SlotArgs) (domain.SlotState, error) {
	if err := requireSlot(args); err != nil {
		return domain.SlotState{}, err
	}
	return s.session.Fail(ctx, args.SlotID, args.Error)
}

func (s *Server) handleSkip(ctx context.Context, request mcp.CallToolRequest, args SlotArgs) (domain.SlotState, error) {
	if err := requireSlot(args); err != nil {
		return domain.SlotState{}, err
	}
	return s.session.Skip(ctx, args.SlotID)
}

func requireSlot(args SlotArgs) error {
	if args.SlotID == "" {
		return fmt.Errorf("slot_id is required")
	}
	return nil
}
