// Package rootcmd wires the root cobra.Command for the wordmask CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	configcmd "github.com/go-ports/wordmask/cmd/wordmask/config"
	importcmd "github.com/go-ports/wordmask/cmd/wordmask/importwords"
	initcmd "github.com/go-ports/wordmask/cmd/wordmask/init"
	mcpcmd "github.com/go-ports/wordmask/cmd/wordmask/mcp"
	sanitizecmd "github.com/go-ports/wordmask/cmd/wordmask/sanitize"
	servecmd "github.com/go-ports/wordmask/cmd/wordmask/serve"
	setupcmd "github.com/go-ports/wordmask/cmd/wordmask/setup"
	"github.com/go-ports/wordmask/cmd/wordmask/shared"
	uninstallcmd "github.com/go-ports/wordmask/cmd/wordmask/uninstall"
	wordscmd "github.com/go-ports/wordmask/cmd/wordmask/words"
	"github.com/go-ports/wordmask/internal/buildinfo"
)

// New creates and returns the root cobra.Command for the wordmask CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "wordmask",
		Short:         "wordmask: redact sensitive words from text",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	root.SetVersionTemplate("wordmask " + buildinfo.String() + "\n")

	root.PersistentFlags().StringVar(
		&ctx.Home, "home", "",
		"Override wordmask home directory (default: $WORDMASK_HOME env → persisted config → ~/.wordmask)",
	)

	root.AddCommand(
		initcmd.New(ctx).Cmd(),
		servecmd.New(ctx).Cmd(),
		sanitizecmd.New(ctx).Cmd(),
		wordscmd.New(ctx).Cmd(),
		importcmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		setupcmd.New(ctx).Cmd(),
		uninstallcmd.New(ctx).Cmd(),
	)

	return root
}
