package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"sprintboard/internal/api"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	serverName    = "sprintboard"
	serverVersion = "0.1.0"
)

// Server exposes the dashboard queries as MCP tools over stdio.
type Server struct {
	svc   api.Querier
	cache api.CacheInspector
	srv   *sdk.Server
}

// NewServer creates the MCP server and registers every tool.
func NewServer(svc api.Querier, cache api.CacheInspector) (*Server, error) {
	s := &Server{
		svc:   svc,
		cache: cache,
		srv:   sdk.NewServer(&sdk.Implementation{Name: serverName, Version: serverVersion}, nil),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Serve runs the JSON-RPC loop over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", serverVersion).Msg("MCP server listening on stdio")
	return s.srv.Run(ctx, &sdk.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.srv.Connect(ctx, t, nil)
}

// addTool registers a tool whose input schema is derived from In.
func addTool[In any](s *sdk.Server, name, description string, h func(context.Context, In) (any, error)) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("schema for tool %s: %w", name, err)
	}
	tool := &sdk.Tool{Name: name, Description: description, InputSchema: schema}

	sdk.AddTool(s, tool, func(ctx context.Context, req *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		log.Debug().Str("tool", name).Msg("Tool call")
		out, err := h(ctx, in)
		if err != nil {
			log.Error().Err(err).Str("tool", name).Msg("Tool call failed")
			return nil, nil, err
		}
		text, err := json.Marshal(out)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode %s result: %w", name, err)
		}
		return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: string(text)}}}, nil, nil
	})
	return nil
}
