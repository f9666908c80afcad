// Package importcmd implements the `wordmask import` command.
package importcmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/go-ports/wordmask/cmd/wordmask/shared"
	"github.com/go-ports/wordmask/internal/redaction"
)

// Command implements `wordmask import`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the import command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Add every word listed in a file (one per line, # comments allowed)",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, "import")
	}
	words, err := redaction.LoadWordFile(path)
	if err != nil {
		return errors.Wrapf(err, "import: read %s", path)
	}

	out := cmd.OutOrStdout()
	if len(words) == 0 {
		fmt.Fprintln(out, "No words to import.")
		return nil
	}

	rt, err := c.ctx.Open(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Fprintf(out, "Importing %d words from %s...\n", len(words), path)
	result, err := rt.Service.Import(cmd.Context(), words, func(current, total int) {
		fmt.Fprintf(out, "\r  %d/%d", current, total)
		if current == total {
			fmt.Fprintln(out)
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d words (%d already stored, %d invalid)\n",
		result.Added, result.Existing, result.Invalid)
	return nil
}
