package main

import (
	"fmt"

	"github.com/spf13/cobra"

	catalogdoc "traitcore/docs/catalog"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the traitctl and catalog versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogVersion, err := catalogdoc.Version()
			if err != nil {
				return &systemError{err: fmt.Errorf("load catalog document: %w", err)}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "traitctl v%s\ncatalog: v%s (%s)\n",
				cliVersion, catalogVersion, catalogdoc.Fingerprint())
			if err != nil {
				return &systemError{err: err}
			}
			return nil
		},
	}
}
