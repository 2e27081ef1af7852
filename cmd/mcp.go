package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for tutorly",
	Long: `Run a Model Context Protocol (MCP) server that exposes tutorly as tools.

The MCP server provides these tools:
- create_tutorial: Generate a tutorial (and clips) from a transcript file
- list_tutorials: List tutorials generated so far
- get_tutorial_markdown: Return a tutorial as Markdown
- export_tutorial_zip: Write a tutorial as index.html plus clips into a zip

This allows AI assistants to use tutorly through the MCP protocol.

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport (e.g. for Claude Desktop)
  tutorly mcp

  # Run MCP server with HTTP transport on port 8080
  tutorly mcp --transport=http --port=8080

  # Set up Claude Desktop integration
  tutorly mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP uses stdio protocol, so keep the terminal UI silent
		config.Verbose = false
		config.Quiet = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		ctx := cmd.Context()

		logr, logFile := internal.NewMCPLogger(config)
		defer logFile.Close()

		store, closeStore, err := openStore(ctx, logr)
		if err != nil {
			logr.Error("opening store failed", "err", err)
			return err
		}
		defer closeStore()

		app := internal.NewApp(config, store, internal.WithLogger(logr))
		user, err := app.LocalUser(ctx)
		if err != nil {
			return err
		}

		mcpServer := internal.NewMCPServer(app, user.ID, logr)

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(ctx, transport, port)
	},
}

// setupClaudeCmd registers tutorly in the Claude Desktop config
var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Configure Claude Desktop to use tutorly MCP server",
	Long: `Register tutorly as an MCP server in claude_desktop_config.json.

Other servers and settings in the file are kept. The entry runs this binary
with "mcp" and pins the XDG directories, so Claude Desktop sees the same
config, prompt and database settings as your shell.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return setupClaudeDesktop(cmd, name, dryRun)
	},
}

// MCPServerConfig is one entry of the mcpServers object
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

func setupClaudeDesktop(cmd *cobra.Command, name string, dryRun bool) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("getting executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	configPath, err := getClaudeDesktopConfigPath()
	if err != nil {
		return fmt.Errorf("getting Claude Desktop config path: %w", err)
	}
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("config for Claude Desktop not found at %s", configPath)
	}
	if err != nil {
		return fmt.Errorf("reading existing config: %w", err)
	}

	// unknown top-level keys are carried through untouched
	desktop := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &desktop); err != nil {
		return fmt.Errorf("parsing existing config: %w", err)
	}
	servers := map[string]json.RawMessage{}
	if raw, ok := desktop["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return fmt.Errorf("parsing mcpServers: %w", err)
		}
	}

	entry, err := json.Marshal(MCPServerConfig{
		Command: execPath,
		Args:    []string{"mcp"},
		Env: map[string]string{
			"XDG_DATA_HOME":   xdg.DataHome,
			"XDG_CONFIG_HOME": xdg.ConfigHome,
			"XDG_CACHE_HOME":  xdg.CacheHome,
		},
	})
	if err != nil {
		return err
	}
	servers[name] = entry
	if desktop["mcpServers"], err = json.Marshal(servers); err != nil {
		return err
	}

	out, err := json.MarshalIndent(desktop, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered MCP server %q in %s\n", name, configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Restart Claude Desktop to pick it up")
	return nil
}

// getClaudeDesktopConfigPath returns the platform-specific config path for Claude Desktop
func getClaudeDesktopConfigPath() (string, error) {
	var configPath string

	switch runtime.GOOS {
	case "darwin":
		// macOS: ~/Library/Application Support/Claude/claude_desktop_config.json
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configPath = filepath.Join(homeDir, "Library", "Application Support", "Claude", "claude_desktop_config.json")

	case "windows":
		// Windows: %APPDATA%/Claude/claude_desktop_config.json
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configPath = filepath.Join(appData, "Claude", "claude_desktop_config.json")

	case "linux":
		// Linux: ~/.config/Claude/claude_desktop_config.json
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configPath = filepath.Join(homeDir, ".config", "Claude", "claude_desktop_config.json")

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return configPath, nil
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	setupClaudeCmd.Flags().String("name", "tutorly", "Server name in the Claude Desktop config")
	setupClaudeCmd.Flags().Bool("dry-run", false, "Print the updated config instead of writing it")
	mcpCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(mcpCmd)
}
