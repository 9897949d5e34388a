package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/pageops"
	"github.com/lvillar/psyreport/report"
	"github.com/lvillar/psyreport/schema"
)

// Deps are the services the tools run against. A nil AI leaves the text
// tools out.
type Deps struct {
	Reports *report.Service
	AI      assist.Generator
}

// RegisterDefaultTools adds the report tools to the server.
func RegisterDefaultTools(s *Server, d Deps) {
	s.AddTool(validateTemplateTool())
	s.AddTool(renderReportTool(d.Reports))
	s.AddTool(mergeReportsTool())
	s.AddTool(pageCountTool())
	if d.AI != nil {
		s.AddTool(generateTextTool(d.AI))
		s.AddTool(enhanceTextTool(d.AI))
	}
}

// decodeArg re-encodes args[key] into v. Tool arguments arrive as generic
// JSON; the pipeline types carry their own decoding rules.
func decodeArg(args map[string]interface{}, key string, v interface{}) error {
	raw, ok := args[key]
	if !ok {
		return fmt.Errorf("missing '%s' argument", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

func textResult(format string, a ...interface{}) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, a...)}}}
}

func validateTemplateTool() Tool {
	return Tool{
		Name:        "validate_template",
		Description: "Check a report template: a name, one of the categories Child, Adult, Family or Educational, and sections of type text, checkbox, radio or select. Option-based sections need at least one option.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"template": map[string]interface{}{
					"type":        "object",
					"description": "Template JSON with name, category, description and sections",
				},
			},
			"required": []string{"template"},
		},
		Handler: handleValidateTemplate,
	}
}

func handleValidateTemplate(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	var tpl schema.Template
	if err := decodeArg(args, "template", &tpl); err != nil {
		return ToolResult{}, err
	}
	tpl.Normalize()
	if err := schema.Validate(&tpl); err != nil {
		return ToolResult{}, err
	}
	return textResult("Template %q is valid (%s, %d sections)", tpl.Name, tpl.Category, len(tpl.Sections)), nil
}

func renderReportTool(svc *report.Service) Tool {
	return Tool{
		Name:        "render_report",
		Description: "Render a filled report as PDF. Sections of the report are matched to the template by position. Images in the branding are resolved from the server's asset directory. Returns the PDF as base64 unless outputPath is given.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"template": map[string]interface{}{
					"type":        "object",
					"description": "The report template",
				},
				"report": map[string]interface{}{
					"type":        "object",
					"description": "Filled report: patient, date, professional and sections[{value|values}]",
				},
				"branding": map[string]interface{}{
					"type":        "object",
					"description": "Optional branding: colors, fonts, images and pdfOptions",
				},
				"preview": map[string]interface{}{
					"type":        "boolean",
					"description": "Stamp the document as a preview and skip the required-section check",
				},
				"referenceCode": map[string]interface{}{
					"type":        "string",
					"description": "Optional reference printed as a QR code on the signature page",
				},
				"outputPath": map[string]interface{}{
					"type":        "string",
					"description": "Optional file path to save the PDF. If omitted, returns base64.",
				},
			},
			"required": []string{"template", "report"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			return handleRenderReport(ctx, svc, args)
		},
	}
}

func handleRenderReport(ctx context.Context, svc *report.Service, args map[string]interface{}) (ToolResult, error) {
	var req report.Request
	var tpl schema.Template
	if err := decodeArg(args, "template", &tpl); err != nil {
		return ToolResult{}, err
	}
	tpl.Normalize()
	req.Template = &tpl
	if err := decodeArg(args, "report", &req.Report); err != nil {
		return ToolResult{}, err
	}
	if _, ok := args["branding"]; ok {
		if err := decodeArg(args, "branding", &req.Branding); err != nil {
			return ToolResult{}, err
		}
	}
	if preview, _ := args["preview"].(bool); preview {
		req.Options = append(req.Options, psyreport.WithPreview())
	}
	if code, _ := args["referenceCode"].(string); code != "" {
		req.Options = append(req.Options, psyreport.WithReferenceCode(code))
	}

	out, err := svc.Render(ctx, req)
	if err != nil {
		return ToolResult{}, err
	}

	if outputPath, ok := args["outputPath"].(string); ok && outputPath != "" {
		if err := os.WriteFile(outputPath, out, 0644); err != nil {
			return ToolResult{}, fmt.Errorf("writing file: %w", err)
		}
		return textResult("Report rendered: %s (%d bytes)", outputPath, len(out)), nil
	}
	return textResult("Report rendered (%d bytes). Base64 data:\n%s", len(out), base64.StdEncoding.EncodeToString(out)), nil
}

func mergeReportsTool() Tool {
	return Tool{
		Name:        "merge_reports",
		Description: "Merge rendered report PDFs into one document, in the order given.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"inputPaths": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Paths of the PDFs to merge",
				},
				"outputPath": map[string]interface{}{
					"type":        "string",
					"description": "Path of the merged PDF",
				},
			},
			"required": []string{"inputPaths", "outputPath"},
		},
		Handler: handleMergeReports,
	}
}

func handleMergeReports(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	var inputs []string
	if err := decodeArg(args, "inputPaths", &inputs); err != nil {
		return ToolResult{}, err
	}
	if len(inputs) < 2 {
		return ToolResult{}, fmt.Errorf("at least two input files are required")
	}
	output, _ := args["outputPath"].(string)
	if output == "" {
		return ToolResult{}, fmt.Errorf("missing 'outputPath' argument")
	}

	if err := pageops.MergeFiles(output, inputs...); err != nil {
		return ToolResult{}, err
	}
	return textResult("Merged %d reports into %s", len(inputs), output), nil
}

func pageCountTool() Tool {
	return Tool{
		Name:        "page_count",
		Description: "Count the pages of a PDF file.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the PDF file",
				},
			},
			"required": []string{"path"},
		},
		Handler: handlePageCount,
	}
}

func handlePageCount(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return ToolResult{}, fmt.Errorf("missing 'path' argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ToolResult{}, err
	}
	n, err := pageops.PageCount(data)
	if err != nil {
		return ToolResult{}, err
	}
	return textResult("%s: %d pages", path, n), nil
}

func generateTextTool(ai assist.Generator) Tool {
	return Tool{
		Name:        "generate_section",
		Description: "Draft the conclusions, recommendations or summary of a report from the answers it already has.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"sectionType": map[string]interface{}{
					"type": "string",
					"enum": []string{string(assist.ContentConclusions), string(assist.ContentRecommendations), string(assist.ContentSummary)},
				},
				"template": map[string]interface{}{
					"type":        "object",
					"description": "The report template",
				},
				"report": map[string]interface{}{
					"type":        "object",
					"description": "The filled report",
				},
				"style": map[string]interface{}{
					"type":        "string",
					"description": "Optional writing style, e.g. formal",
				},
			},
			"required": []string{"sectionType", "template", "report"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			kind, _ := args["sectionType"].(string)
			var tpl schema.Template
			if err := decodeArg(args, "template", &tpl); err != nil {
				return ToolResult{}, err
			}
			tpl.Normalize()
			var raw collect.RawReport
			if err := decodeArg(args, "report", &raw); err != nil {
				return ToolResult{}, err
			}
			style, _ := args["style"].(string)

			rec := collect.Collect(&tpl, raw)
			out, err := ai.GenerateText(ctx, assist.ContentPrompt(assist.ContentKind(kind), &tpl, rec, style), assist.Options{Style: style})
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("%s", out), nil
		},
	}
}

func enhanceTextTool(ai assist.Generator) Tool {
	return Tool{
		Name:        "enhance_text",
		Description: "Rewrite a passage of a report: improve_clarity, formal_tone, simplify or expand.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{
					"type": "string",
				},
				"enhancementType": map[string]interface{}{
					"type": "string",
					"enum": []string{string(assist.EnhanceClarity), string(assist.EnhanceFormal), string(assist.EnhanceSimplify), string(assist.EnhanceExpand)},
				},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			text, _ := args["text"].(string)
			if text == "" {
				return ToolResult{}, fmt.Errorf("missing 'text' argument")
			}
			kind, _ := args["enhancementType"].(string)
			out, err := ai.GenerateText(ctx, assist.EnhancePrompt(text, assist.Enhancement(kind)), assist.Options{})
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("%s", out), nil
		},
	}
}
