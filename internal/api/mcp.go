package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/skillbridge/internal/advisor"
	"github.com/kalambet/skillbridge/internal/roadmap"
)

const recentLimit = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Analyzer Analyzer
	History  History // optional; nil leaves skillbridge://recent empty
	Version  string
	// Timeout bounds one generate_roadmap call; zero means 5 minutes.
	Timeout time.Duration
}

// NewMCPServer creates an MCP server exposing roadmap generation.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"skillbridge",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("SkillBridge generates a 20-week career roadmap from a self-reported skill profile."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_roadmap",
			mcp.WithDescription("Generate a career roadmap (JSON) for a skill profile using free LLM models."),
			mcp.WithNumber("confidence", mcp.Description("Self-rated confidence from 1 to 10"), mcp.Required()),
			mcp.WithString("skills", mcp.Description("Current skills, free text"), mcp.Required()),
			mcp.WithString("desired_job", mcp.Description("Target job role"), mcp.Required()),
			mcp.WithNumber("weekly_hours", mcp.Description("Hours per week available for learning"), mcp.Required()),
		),
		mcpGenerateRoadmap(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"skillbridge://recent",
			"Recent Roadmaps",
			mcp.WithResourceDescription("Last 10 analyses (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpGenerateRoadmap(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := roadmap.ProfileInput{
			Skills:     req.GetString("skills", ""),
			DesiredJob: req.GetString("desired_job", ""),
		}
		if v := req.GetFloat("confidence", 0); v != 0 {
			in.Confidence = json.Number(strconv.FormatFloat(v, 'f', -1, 64))
		}
		if v := req.GetFloat("weekly_hours", 0); v != 0 {
			in.WeeklyHours = json.Number(strconv.FormatFloat(v, 'f', -1, 64))
		}

		p, err := in.Profile()
		if err != nil {
			return mcpError(advisor.UserMessage(err)), nil
		}

		timeout := deps.Timeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		res, err := deps.Analyzer.Analyze(ctx, p)
		if err != nil {
			return mcpError(advisor.UserMessage(err)), nil
		}
		return mcpText(string(res.Roadmap)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summaries := []analysisSummary{}
		if deps.History != nil {
			list, err := deps.History.ListAnalyses(ctx, recentLimit, 0)
			if err != nil {
				return nil, fmt.Errorf("failed to get recent analyses: %w", err)
			}
			for _, a := range list {
				summaries = append(summaries, summarize(a))
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analyses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
