// Package initcmd implements the `wordmask init` command.
package initcmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/go-ports/wordmask/cmd/wordmask/shared"
)

// Command implements `wordmask init`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the init command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize the wordmask home and word store",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	rt, err := c.ctx.Open(cmd.Context(), false)
	if err != nil {
		return errors.Wrap(err, "init")
	}
	defer rt.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "wordmask initialized at %s (%s store)\n", rt.Home, rt.Config.Store.Driver)
	return nil
}
