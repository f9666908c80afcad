// Package mcpcmd implements the `wordmask mcp` command.
package mcpcmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/wordmask/cmd/wordmask/shared"
	internalmcp "github.com/go-ports/wordmask/internal/mcp"
)

// Command implements `wordmask mcp`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the mcp command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start the wordmask MCP server (stdio transport)",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	rt, err := c.ctx.Open(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer rt.Close()

	return internalmcp.Serve(cmd.Context(), rt.Service, rt.Logger)
}
