// Package servecmd implements the `wordmask serve` command.
package servecmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/go-ports/wordmask/cmd/wordmask/shared"
	"github.com/go-ports/wordmask/internal/api"
	"github.com/go-ports/wordmask/internal/buildinfo"
)

// Command implements `wordmask serve`.
type Command struct {
	ctx  *shared.Context
	cmd  *cobra.Command
	addr string
}

// New creates the serve command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP sanitization service",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.addr, "addr", "", "Listen address (overrides server.addr)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := c.ctx.Open(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	if c.addr != "" {
		rt.Config.Server.Addr = c.addr
	}
	rt.Logger.Info("starting wordmask",
		zap.String("version", buildinfo.Version),
		zap.String("home", rt.Home),
		zap.String("store", rt.Config.Store.Driver))

	rt.Service.Listen(ctx)
	return api.New(rt.Service, rt.Config.Server, rt.Logger).ListenAndServe(ctx)
}
