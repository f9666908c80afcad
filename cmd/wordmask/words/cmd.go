// Package wordscmd implements the `wordmask words` command group.
package wordscmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-ports/wordmask/cmd/wordmask/shared"
	"github.com/go-ports/wordmask/internal/service"
)

// Command implements `wordmask words`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the words command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "words",
		Short: "Manage the sensitive word list",
	}
	c.cmd.AddCommand(
		newList(ctx),
		newGet(ctx),
		newAdd(ctx),
		newUpdate(ctx),
		newDelete(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// withService opens the runtime, runs fn and closes it again.
func withService(cmd *cobra.Command, ctx *shared.Context, fn func(svc *service.Service) error) error {
	rt, err := ctx.Open(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()
	return shared.UserError(fn(rt.Service))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, service.ErrInvalidID
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// words list
// ---------------------------------------------------------------------------

func newList(ctx *shared.Context) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored words with their ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, ctx, func(svc *service.Service) error {
				entries, err := svc.ListEntries(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					b, err := json.MarshalIndent(entries, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(b))
					return nil
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No sensitive words stored.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%d\t%s\n", e.ID, e.Word)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

// ---------------------------------------------------------------------------
// words get
// ---------------------------------------------------------------------------

func newGet(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the word stored under an id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, ctx, func(svc *service.Service) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				word, err := svc.GetWord(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), word)
				return nil
			})
		},
	}
}

// ---------------------------------------------------------------------------
// words add
// ---------------------------------------------------------------------------

func newAdd(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "add <word>",
		Short: "Add a sensitive word (quote phrases)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, ctx, func(svc *service.Service) error {
				id, err := svc.CreateWord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added word %d\n", id)
				return nil
			})
		},
	}
}

// ---------------------------------------------------------------------------
// words update
// ---------------------------------------------------------------------------

func newUpdate(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <word>",
		Short: "Replace the word stored under an id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, ctx, func(svc *service.Service) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if _, err := svc.UpdateWord(cmd.Context(), id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated word %d\n", id)
				return nil
			})
		},
	}
}

// ---------------------------------------------------------------------------
// words delete
// ---------------------------------------------------------------------------

func newDelete(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the word stored under an id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, ctx, func(svc *service.Service) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := svc.DeleteWord(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted word %d\n", id)
				return nil
			})
		},
	}
}
