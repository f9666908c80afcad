// Package uninstallcmd implements the `wordmask uninstall` command group.
package uninstallcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	setupcmd "github.com/go-ports/wordmask/cmd/wordmask/setup"
	"github.com/go-ports/wordmask/cmd/wordmask/shared"
	"github.com/go-ports/wordmask/internal/setup"
)

// Command implements `wordmask uninstall`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the uninstall command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the wordmask MCP server from an agent",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	c.cmd.AddCommand(
		newAgentCmd("claude-code", ".claude", "Claude Code", func(dir string, project bool) (setup.Result, error) {
			return setup.UninstallClaudeCode(dir, project)
		}),
		newAgentCmd("cursor", ".cursor", "Cursor", func(dir string, _ bool) (setup.Result, error) {
			return setup.UninstallCursor(dir)
		}),
		newAgentCmd("codex", ".codex", "Codex", func(dir string, _ bool) (setup.Result, error) {
			return setup.UninstallCodex(dir)
		}),
		newOpencode(),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func newAgentCmd(use, dotDir, agent string, fn func(dir string, project bool) (setup.Result, error)) *cobra.Command {
	var configDir string
	var project bool
	cmd := &cobra.Command{
		Use:   use,
		Short: "Remove the MCP server from " + agent,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := fn(setupcmd.ResolveConfigDir(dotDir, configDir, project), project)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to "+dotDir+" directory")
	cmd.Flags().BoolVar(&project, "project", false, "Remove from current project instead of globally")
	return cmd
}

func newOpencode() *cobra.Command {
	var configDir string
	var project bool
	cmd := &cobra.Command{
		Use:   "opencode",
		Short: "Remove the MCP server from OpenCode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := setup.UninstallOpencode(setup.OpencodePath(configDir, project || configDir != ""))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory holding opencode.json")
	cmd.Flags().BoolVar(&project, "project", false, "Remove from current project instead of globally")
	return cmd
}
