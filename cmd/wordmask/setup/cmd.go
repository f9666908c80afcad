// Package setupcmd implements the `wordmask setup` command group.
package setupcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-ports/wordmask/cmd/wordmask/shared"
	"github.com/go-ports/wordmask/internal/setup"
)

// Command implements `wordmask setup`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the setup command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "setup",
		Short: "Register the wordmask MCP server with an agent",
		Long: `Register the wordmask MCP server with a coding agent.

When --home is given it is pinned in the agent entry so the agent reads the
same word store as this CLI.`,
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	c.cmd.AddCommand(
		newSetupClaudeCode(ctx),
		newSetupCursor(ctx),
		newSetupCodex(ctx),
		newSetupOpencode(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func printResult(cmd *cobra.Command, result setup.Result, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	return nil
}

// ---------------------------------------------------------------------------
// setup claude-code
// ---------------------------------------------------------------------------

func newSetupClaudeCode(ctx *shared.Context) *cobra.Command {
	var configDir string
	var project bool
	cmd := &cobra.Command{
		Use:   "claude-code",
		Short: "Register the MCP server with Claude Code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := ResolveConfigDir(".claude", configDir, project)
			result, err := setup.SetupClaudeCode(target, project, setup.NewServer(ctx.Home))
			return printResult(cmd, result, err)
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to .claude directory")
	cmd.Flags().BoolVar(&project, "project", false, "Install in current project instead of globally")
	return cmd
}

// ---------------------------------------------------------------------------
// setup cursor
// ---------------------------------------------------------------------------

func newSetupCursor(ctx *shared.Context) *cobra.Command {
	var configDir string
	var project bool
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Register the MCP server with Cursor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := ResolveConfigDir(".cursor", configDir, project)
			result, err := setup.SetupCursor(target, setup.NewServer(ctx.Home))
			return printResult(cmd, result, err)
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to .cursor directory")
	cmd.Flags().BoolVar(&project, "project", false, "Install in current project instead of globally")
	return cmd
}

// ---------------------------------------------------------------------------
// setup codex
// ---------------------------------------------------------------------------

func newSetupCodex(ctx *shared.Context) *cobra.Command {
	var configDir string
	var project bool
	cmd := &cobra.Command{
		Use:   "codex",
		Short: "Register the MCP server in Codex config.toml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := ResolveConfigDir(".codex", configDir, project)
			result, err := setup.SetupCodex(target, setup.NewServer(ctx.Home))
			return printResult(cmd, result, err)
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to .codex directory")
	cmd.Flags().BoolVar(&project, "project", false, "Install in current project instead of globally")
	return cmd
}

// ---------------------------------------------------------------------------
// setup opencode
// ---------------------------------------------------------------------------

func newSetupOpencode(ctx *shared.Context) *cobra.Command {
	var configDir string
	var project bool
	cmd := &cobra.Command{
		Use:   "opencode",
		Short: "Register the MCP server with OpenCode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := setup.OpencodePath(configDir, project || configDir != "")
			result, err := setup.SetupOpencode(path, setup.NewServer(ctx.Home))
			return printResult(cmd, result, err)
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory holding opencode.json")
	cmd.Flags().BoolVar(&project, "project", false, "Install in current project instead of globally")
	return cmd
}

// ---------------------------------------------------------------------------
// Helper
// ---------------------------------------------------------------------------

// ResolveConfigDir picks the agent directory: an explicit --config-dir,
// else dotDir under the working directory (--project) or the user's home.
//
//revive:disable:flag-parameter
func ResolveConfigDir(dotDir, configDir string, project bool) string {
	if configDir != "" {
		return configDir
	}
	if project {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, dotDir)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dotDir)
}

//revive:enable:flag-parameter
