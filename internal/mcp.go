package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	userID    string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server acting on behalf of userID
func NewMCPServer(app *App, userID string, logger *slog.Logger) *MCPServer {
	mcpServer := server.NewMCPServer(
		"tutorly-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if logger == nil {
		logger = slog.Default()
	}

	s := &MCPServer{
		app:       app,
		userID:    userID,
		logger:    logger,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_tutorial",
		mcp.WithDescription("Generate a step-by-step tutorial from a speech-to-text transcript JSON file (PAID: calls the OpenAI API). If a video is given, a short clip is cut for every step. Returns the tutorial as Markdown together with its ID."),
		mcp.WithString("transcript_path",
			mcp.Description("Path to the transcript JSON file"),
			mcp.Required(),
		),
		mcp.WithString("video_path",
			mcp.Description("Optional path to the recording the transcript belongs to"),
		),
		mcp.WithString("video_url",
			mcp.Description("Optional URL of the recording, downloaded with yt-dlp"),
		),
	), s.handleCreateTutorial)

	s.mcpServer.AddTool(mcp.NewTool("list_tutorials",
		mcp.WithDescription("List generated tutorials, most recently updated first."),
	), s.handleListTutorials)

	s.mcpServer.AddTool(mcp.NewTool("get_tutorial_markdown",
		mcp.WithDescription("Return a stored tutorial as Markdown."),
		mcp.WithString("id",
			mcp.Description("Tutorial ID"),
			mcp.Required(),
		),
	), s.handleGetMarkdown)

	s.mcpServer.AddTool(mcp.NewTool("export_tutorial_zip",
		mcp.WithDescription("Write a tutorial as a zip archive (index.html plus clips) to a local path."),
		mcp.WithString("id",
			mcp.Description("Tutorial ID"),
			mcp.Required(),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the archive; defaults to tutorial_<id>.zip in the current directory"),
		),
	), s.handleExportZip)
}

// handleCreateTutorial implements the create_tutorial tool
func (s *MCPServer) handleCreateTutorial(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transcriptPath, err := request.RequireString("transcript_path")
	if err != nil {
		return mcp.NewToolResultError("transcript_path parameter is required and must be a string"), nil
	}
	videoPath := request.GetString("video_path", "")
	videoURL := request.GetString("video_url", "")
	s.logger.Info("create_tutorial", "transcript", transcriptPath, "video", videoPath, "video_url", videoURL)

	if videoPath != "" && videoURL != "" {
		return mcp.NewToolResultError("pass either video_path or video_url, not both"), nil
	}
	if videoURL != "" {
		fetched, err := s.app.FetchVideo(ctx, videoURL)
		if err != nil {
			s.logger.Error("video download failed", "url", videoURL, "err", err)
			return mcp.NewToolResultErrorFromErr("failed to download video", err), nil
		}
		defer os.RemoveAll(filepath.Dir(fetched))
		videoPath = fetched
	}

	tutorial, report, err := s.app.BuildTutorial(ctx, s.userID, BuildRequest{
		TranscriptPath: transcriptPath,
		VideoPath:      videoPath,
	})
	if err != nil {
		s.logger.Error("create_tutorial failed", "transcript", transcriptPath, "err", err)
		return mcp.NewToolResultErrorFromErr("failed to create tutorial", err), nil
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Tutorial ID: %s\n", tutorial.ID)
	if videoPath != "" {
		fmt.Fprintf(&buf, "Clips: %d extracted, %d reused, %d failed\n", report.Extracted, report.Reused, report.Failed)
	}
	buf.WriteString("\n")
	buf.WriteString(RenderMarkdownSource(tutorial))

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
	}, nil
}

// handleListTutorials implements the list_tutorials tool
func (s *MCPServer) handleListTutorials(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tutorials, err := s.app.ListTutorials(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to list tutorials", err), nil
	}
	if len(tutorials) == 0 {
		return mcp.NewToolResultText("No tutorials yet."), nil
	}

	var buf strings.Builder
	for _, t := range tutorials {
		fmt.Fprintf(&buf, "%s  %s  (%d steps, updated %s)\n", t.ID, t.Title, len(t.Steps), t.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// handleGetMarkdown implements the get_tutorial_markdown tool
func (s *MCPServer) handleGetMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required and must be a string"), nil
	}
	tutorial, err := s.app.GetTutorial(ctx, s.userID, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("tutorial not found", err), nil
	}
	return mcp.NewToolResultText(RenderMarkdownSource(tutorial)), nil
}

// handleExportZip implements the export_tutorial_zip tool
func (s *MCPServer) handleExportZip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required and must be a string"), nil
	}
	output := request.GetString("output_path", "")
	if output == "" {
		output = ZipFilename(Tutorial{ID: id})
	}

	if err := s.app.ExportZipFile(ctx, s.userID, id, output); err != nil {
		s.logger.Error("export_tutorial_zip failed", "id", id, "err", err)
		return mcp.NewToolResultErrorFromErr("failed to export tutorial", err), nil
	}
	abs, _ := filepath.Abs(output)
	return mcp.NewToolResultText(fmt.Sprintf("Wrote %s", abs)), nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info("mcp server listening", "addr", addr)
		return httpServer.Start(addr)
	}

	// Default to stdio transport
	s.logger.Info("mcp server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// GetServer returns the underlying MCP server for advanced configuration
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.mcpServer
}
