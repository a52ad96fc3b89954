package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const cliVersion = "0.1.0"

// rootOptions carries the per-invocation configuration shared by all
// subcommands. Settings resolve flag first, then TRAITCORE_* environment
// variable, then default.
type rootOptions struct {
	vp     *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{vp: viper.New()}
	opts.vp.SetEnvPrefix("traitcore")
	opts.vp.AutomaticEnv()
	opts.vp.SetDefault("verbose", false)

	root := &cobra.Command{
		Use:           "traitctl",
		Short:         "Inspect the trait catalog and evaluate compositions",
		Long:          "traitctl inspects the compiled trait catalog, evaluates trait\ncompositions and exports the canonical catalog document.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.setupLogging(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().Bool("verbose", false, "emit structured debug logs to stderr")
	_ = opts.vp.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(newCatalogCmd(opts))
	root.AddCommand(newComposeCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func (o *rootOptions) setupLogging(stderr io.Writer) {
	if o.vp.GetBool("verbose") {
		o.logger = slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		return
	}
	o.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
}
