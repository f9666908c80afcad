// Package sanitizecmd implements the `wordmask sanitize` command.
package sanitizecmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/go-ports/wordmask/cmd/wordmask/shared"
)

// Command implements `wordmask sanitize`.
type Command struct {
	ctx   *shared.Context
	cmd   *cobra.Command
	lines bool
}

// New creates the sanitize command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "sanitize [text...]",
		Short: "Mask sensitive words in text from the arguments or stdin",
		Long: `Mask sensitive words in text.

The arguments are joined with spaces and sanitized as one text. Without
arguments the text is read from stdin. With --lines every input line is
sanitized as a separate batch item.`,
		RunE: c.run,
	}
	c.cmd.Flags().BoolVar(&c.lines, "lines", false, "Treat each stdin line as a separate text")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := c.ctx.Open(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()

	if c.lines && len(args) == 0 {
		texts, err := readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
		results, err := rt.Service.SanitizeBatch(ctx, texts)
		if err != nil {
			return shared.UserError(err)
		}
		for _, r := range results {
			fmt.Fprintln(out, r)
		}
		return nil
	}

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "sanitize: read stdin")
		}
		text = strings.TrimSuffix(string(b), "\n")
	}

	result, err := rt.Service.Sanitize(ctx, text)
	if err != nil {
		return shared.UserError(err)
	}
	fmt.Fprintln(out, result)
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	lines := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "sanitize: read stdin")
	}
	return lines, nil
}
