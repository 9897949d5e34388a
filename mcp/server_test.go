package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/pageops"
	"github.com/lvillar/psyreport/report"
)

func testDeps() Deps {
	return Deps{
		Reports: report.NewService(nil, 2),
		AI:      assist.Offline{Mock: true},
	}
}

func sendRequest(t *testing.T, s *Server, method string, id int, params interface{}) jsonrpcResponse {
	t.Helper()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}

	reqBytes, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	reqBytes = append(reqBytes, '\n')

	var output bytes.Buffer
	s.input = bytes.NewReader(reqBytes)
	s.output = &output

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response %q: %v", output.String(), err)
	}
	return resp
}

// callTool calls name and returns the text of its result.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	resp := sendRequest(t, s, "tools/call", 7, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	var result ToolResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("empty tool result: %s", data)
	}
	return result.Content[0].Text, result.IsError
}

var intake = map[string]interface{}{
	"name":     "Adult intake",
	"category": "adultos",
	"sections": []interface{}{
		map[string]interface{}{"name": "Reason for consultation", "type": "text", "required": true},
		map[string]interface{}{"name": "Symptoms", "type": "checkbox", "options": []string{"Anxiety", "Insomnia"}},
	},
}

var filled = map[string]interface{}{
	"patient":      map[string]interface{}{"name": "Juan Pérez", "age": 34},
	"date":         "2024-03-01",
	"professional": map[string]interface{}{"name": "Dr. Ana Ruiz", "license": "M-123"},
	"sections": []interface{}{
		map[string]interface{}{"value": "Work related stress"},
		map[string]interface{}{"values": []string{"Anxiety"}},
	},
}

func TestServerInitialize(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, testDeps())

	resp := sendRequest(t, s, "initialize", 1, map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]interface{}{"name": "test", "version": "1.0"},
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("result is not a map")
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("missing serverInfo")
	}
	if serverInfo["name"] != "psyreport-mcp" {
		t.Fatalf("unexpected server name: %v", serverInfo["name"])
	}
}

func TestServerToolsList(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, testDeps())

	resp := sendRequest(t, s, "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]interface{})
	if !ok {
		t.Fatal("tools is not an array")
	}

	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	want := "enhance_text,generate_section,merge_reports,page_count,render_report,validate_template"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("tools: got %s, want %s", got, want)
	}
}

func TestServerToolsWithoutAI(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, Deps{Reports: report.NewService(nil, 1)})

	if _, ok := s.tools["generate_section"]; ok {
		t.Fatal("text tools registered without a generator")
	}
	if _, ok := s.tools["render_report"]; !ok {
		t.Fatal("render_report missing")
	}
}

func TestServerResources(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultResources(s)

	resp := sendRequest(t, s, "resources/list", 3, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	resources := resp.Result.(map[string]interface{})["resources"].([]interface{})
	if len(resources) != 3 {
		t.Fatalf("expected 3 resources, got %d", len(resources))
	}

	resp = sendRequest(t, s, "resources/read", 4, map[string]interface{}{"uri": "psyreport://section-kinds"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	for _, want := range []string{`\"type\": \"checkbox\"`, `\"needsOptions\": true`, `\"type\": \"text\"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("section kinds: missing %s in %s", want, data)
		}
	}

	resp = sendRequest(t, s, "resources/read", 5, map[string]interface{}{"uri": "psyreport://nothing"})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602 for an unknown resource, got %+v", resp.Error)
	}
}

func TestServerPing(t *testing.T) {
	s := NewServerWithIO(nil, nil)

	resp := sendRequest(t, s, "ping", 4, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	s := NewServerWithIO(nil, nil)

	resp := sendRequest(t, s, "nonexistent/method", 5, nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Fatalf("expected error code -32601, got %d", resp.Error.Code)
	}
}

func TestServerUnknownTool(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, testDeps())

	resp := sendRequest(t, s, "tools/call", 6, map[string]interface{}{
		"name":      "nonexistent_tool",
		"arguments": map[string]interface{}{},
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestValidateTemplateTool(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, testDeps())

	text, isErr := callTool(t, s, "validate_template", map[string]interface{}{"template": intake})
	if isErr {
		t.Fatalf("valid template rejected: %s", text)
	}
	if !strings.Contains(text, `"Adult intake" is valid (Adult, 2 sections)`) {
		t.Fatalf("unexpected result: %s", text)
	}

	bad := map[string]interface{}{
		"name":     "Broken",
		"category": "Adult",
		"sections": []interface{}{map[string]interface{}{"name": "Mood", "type": "radio"}},
	}
	text, isErr = callTool(t, s, "validate_template", map[string]interface{}{"template": bad})
	if !isErr || !strings.HasPrefix(text, "Error:") {
		t.Fatalf("expected a tool error, got %q", text)
	}
}

func TestRenderReportTool(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, testDeps())

	text, isErr := callTool(t, s, "render_report", map[string]interface{}{
		"template": intake,
		"report":   filled,
	})
	if isErr {
		t.Fatalf("render failed: %s", text)
	}
	if !strings.Contains(text, "Base64 data:\nJVBERi") {
		t.Fatalf("expected base64 PDF data, got %.80s", text)
	}

	out := filepath.Join(t.TempDir(), "report.pdf")
	text, isErr = callTool(t, s, "render_report", map[string]interface{}{
		"template":      intake,
		"report":        filled,
		"preview":       true,
		"referenceCode": "PSY-2024-001",
		"outputPath":    out,
	})
	if isErr {
		t.Fatalf("render failed: %s", text)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}

func TestMergeAndCountTools(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, testDeps())

	dir := t.TempDir()
	var inputs []string
	for _, name := range []string{"a.pdf", "b.pdf"} {
		path := filepath.Join(dir, name)
		if text, isErr := callTool(t, s, "render_report", map[string]interface{}{
			"template": intake, "report": filled, "outputPath": path,
		}); isErr {
			t.Fatalf("render failed: %s", text)
		}
		inputs = append(inputs, path)
	}

	merged := filepath.Join(dir, "merged.pdf")
	text, isErr := callTool(t, s, "merge_reports", map[string]interface{}{
		"inputPaths": inputs,
		"outputPath": merged,
	})
	if isErr {
		t.Fatalf("merge failed: %s", text)
	}

	single, err := os.ReadFile(inputs[0])
	if err != nil {
		t.Fatal(err)
	}
	n, err := pageops.PageCount(single)
	if err != nil {
		t.Fatal(err)
	}
	text, isErr = callTool(t, s, "page_count", map[string]interface{}{"path": merged})
	if isErr {
		t.Fatalf("page_count failed: %s", text)
	}
	if want := merged + ": " + strconv.Itoa(2*n) + " pages"; text != want {
		t.Fatalf("got %q, want %q", text, want)
	}

	if _, isErr := callTool(t, s, "merge_reports", map[string]interface{}{
		"inputPaths": inputs[:1], "outputPath": merged,
	}); !isErr {
		t.Fatal("merging a single file should fail")
	}
}

func TestTextTools(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	RegisterDefaultTools(s, testDeps())

	text, isErr := callTool(t, s, "generate_section", map[string]interface{}{
		"sectionType": "recommendations",
		"template":    intake,
		"report":      filled,
	})
	if isErr || !strings.HasPrefix(text, "## Recommendations") {
		t.Fatalf("unexpected draft: %q", text)
	}

	text, isErr = callTool(t, s, "enhance_text", map[string]interface{}{"text": "patient sad", "enhancementType": "formal_tone"})
	if isErr || text == "" {
		t.Fatalf("unexpected rewrite: %q", text)
	}

	if _, isErr := callTool(t, s, "enhance_text", map[string]interface{}{}); !isErr {
		t.Fatal("expected an error without text")
	}
}

func TestServerMultipleRequests(t *testing.T) {
	requests := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
	}

	input := strings.Join(requests, "\n") + "\n"
	var output bytes.Buffer

	s := NewServerWithIO(strings.NewReader(input), &output)
	RegisterDefaultTools(s, testDeps())
	RegisterDefaultResources(s)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// the notification gets no response
	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 responses, got %d: %s", len(lines), output.String())
	}
	for i, line := range lines {
		var resp jsonrpcResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("response %d: unmarshal error: %v\nline: %s", i, err, line)
		}
		if resp.Error != nil {
			t.Errorf("response %d: unexpected error: %s", i, resp.Error.Message)
		}
	}
}

func TestServerErrorCodes(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	s.AddResource(Resource{
		URI:  "psyreport://broken",
		Name: "Broken",
		Handler: func(uri string) ([]ResourceContent, error) {
			return nil, errors.New("disk gone")
		},
	})

	resp := sendRequest(t, s, "resources/read", 8, map[string]interface{}{"uri": "psyreport://broken"})
	if resp.Error == nil || resp.Error.Code != -32603 || resp.Error.Data != "disk gone" {
		t.Fatalf("expected -32603 with the handler error, got %+v", resp.Error)
	}

	resp = sendRequest(t, s, "tools/call", 9, nil)
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602 without params, got %+v", resp.Error)
	}

	var output bytes.Buffer
	s.input = strings.NewReader("{not json\n" + `{"jsonrpc":"2.0","method":"ping"}` + "\n")
	s.output = &output
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var parsed jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &parsed); err != nil {
		t.Fatalf("expected a single response, got %q: %v", output.String(), err)
	}
	if parsed.ID != nil || parsed.Error == nil || parsed.Error.Code != -32700 {
		t.Fatalf("expected an anonymous -32700, got %s", output.String())
	}
}

func TestServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var output bytes.Buffer
	s := NewServerWithIO(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &output)
	if err := s.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if output.Len() != 0 {
		t.Fatalf("unexpected output: %s", output.String())
	}
}

func TestToolAddTool(t *testing.T) {
	s := NewServerWithIO(nil, nil)

	s.AddTool(Tool{
		Name:        "custom_tool",
		Description: "A custom test tool",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			return textResult("custom result"), nil
		},
	})

	text, isErr := callTool(t, s, "custom_tool", map[string]interface{}{})
	if isErr || text != "custom result" {
		t.Fatalf("unexpected result: %q", text)
	}
}
