// Package mcp exposes the report pipeline to AI assistants as an MCP server.
// Messages are newline-delimited JSON-RPC 2.0 on a reader/writer pair,
// usually stdin and stdout. Only tools and resources are offered.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/lvillar/psyreport/log"
)

// Name and Version identify the server in the initialize handshake.
const (
	Name    = "psyreport-mcp"
	Version = "1.0.0"

	protocolVersion = "2024-11-05"
	maxMessage      = 10 << 20
)

// Server answers MCP requests one at a time, in arrival order.
type Server struct {
	tools     map[string]Tool
	resources map[string]Resource
	input     io.Reader
	output    io.Writer
	mu        sync.Mutex
}

// Tool is a callable operation. Handler is not part of the listing.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	Handler     ToolHandler            `json:"-"`
}

// ToolHandler runs a tool. A returned error is reported to the client as
// a failed tool result, not as a protocol error.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (ToolResult, error)

type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Resource is a readable document addressed by URI.
type Resource struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Handler     ResourceHandler `json:"-"`
}

type ResourceHandler func(uri string) ([]ResourceContent, error)

type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

type jsonrpcRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *jsonrpcError    `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *jsonrpcError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

const (
	codeParse          = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

func invalidParams(message string, data interface{}) error {
	return &jsonrpcError{Code: codeInvalidParams, Message: message, Data: data}
}

// NewServer returns a server on stdin and stdout.
func NewServer() *Server {
	return NewServerWithIO(os.Stdin, os.Stdout)
}

func NewServerWithIO(in io.Reader, out io.Writer) *Server {
	return &Server{
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
		input:     in,
		output:    out,
	}
}

func (s *Server) AddTool(t Tool) { s.tools[t.Name] = t }

func (s *Server) AddResource(r Resource) { s.resources[r.URI] = r }

type handler func(s *Server, ctx context.Context, params json.RawMessage) (interface{}, error)

var methods = map[string]handler{
	"initialize":     (*Server).initialize,
	"ping":           func(*Server, context.Context, json.RawMessage) (interface{}, error) { return struct{}{}, nil },
	"tools/list":     (*Server).listTools,
	"tools/call":     (*Server).callTool,
	"resources/list": (*Server).listResources,
	"resources/read": (*Server).readResource,
}

// Run serves until the input ends or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	in := bufio.NewScanner(s.input)
	in.Buffer(make([]byte, 0, 64<<10), maxMessage)
	for in.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if line := in.Bytes(); len(line) > 0 {
			s.serve(ctx, line)
		}
	}
	return in.Err()
}

func (s *Server) serve(ctx context.Context, line []byte) {
	var req jsonrpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.reply(nil, nil, &jsonrpcError{Code: codeParse, Message: "Parse error", Data: err.Error()})
		return
	}

	h, ok := methods[req.Method]
	if req.ID == nil {
		// notifications never get a response
		if !ok {
			log.WithField("method", req.Method).Debug("mcp: ignoring notification")
		}
		return
	}
	if !ok {
		s.reply(req.ID, nil, &jsonrpcError{Code: codeMethodNotFound, Message: "Method not found", Data: req.Method})
		return
	}
	result, err := h(s, ctx, req.Params)
	s.reply(req.ID, result, err)
}

func (s *Server) reply(id *json.RawMessage, result interface{}, err error) {
	resp := jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result}
	if err != nil {
		var rpcErr *jsonrpcError
		if !errors.As(err, &rpcErr) {
			rpcErr = &jsonrpcError{Code: codeInternal, Message: err.Error()}
		}
		resp.Result, resp.Error = nil, rpcErr
	}

	data, err := json.Marshal(resp)
	if err != nil {
		log.WithError(err).Error("mcp: encoding response")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.output.Write(append(data, '\n')); err != nil {
		log.WithError(err).Error("mcp: writing response")
	}
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

func (s *Server) initialize(context.Context, json.RawMessage) (interface{}, error) {
	return initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: map[string]interface{}{
			"tools":     struct{}{},
			"resources": struct{}{},
		},
		ServerInfo: serverInfo{Name: Name, Version: Version},
	}, nil
}

func (s *Server) listTools(context.Context, json.RawMessage) (interface{}, error) {
	tools := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return map[string][]Tool{"tools": tools}, nil
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var call struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, invalidParams("Invalid params", err.Error())
	}
	tool, ok := s.tools[call.Name]
	if !ok {
		return nil, invalidParams("Unknown tool", call.Name)
	}

	result, err := tool.Handler(ctx, call.Arguments)
	if err != nil {
		log.WithError(err).WithField("tool", call.Name).Debug("mcp: tool failed")
		result = textResult("Error: %v", err)
		result.IsError = true
	}
	return result, nil
}

func (s *Server) listResources(context.Context, json.RawMessage) (interface{}, error) {
	resources := make([]Resource, 0, len(s.resources))
	for _, r := range s.resources {
		resources = append(resources, r)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })
	return map[string][]Resource{"resources": resources}, nil
}

func (s *Server) readResource(_ context.Context, params json.RawMessage) (interface{}, error) {
	var read struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(params, &read); err != nil {
		return nil, invalidParams("Invalid params", err.Error())
	}
	r, ok := s.resources[read.URI]
	if !ok {
		return nil, invalidParams("Unknown resource", read.URI)
	}
	contents, err := r.Handler(read.URI)
	if err != nil {
		return nil, &jsonrpcError{Code: codeInternal, Message: "Resource error", Data: err.Error()}
	}
	return map[string][]ResourceContent{"contents": contents}, nil
}
