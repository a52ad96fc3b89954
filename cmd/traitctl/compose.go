package main

import (
	"github.com/spf13/cobra"

	"traitcore/pkg/trait"
)

// composeReport is the JSON rendering of one composition evaluation.
type composeReport struct {
	ID      string        `json:"id"`
	Traits  []string      `json:"traits"`
	Valid   bool          `json:"valid"`
	Missing []string      `json:"missing,omitempty"`
	Closure closureReport `json:"closure"`
}

type closureReport struct {
	ID     string   `json:"id"`
	Traits []string `json:"traits"`
}

func newComposeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compose <trait>...",
		Short: "Evaluate a trait composition",
		Long:  "Evaluate a trait composition: its deterministic ID, dependency\nvalidity, and the closure under declared dependency edges.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traits, err := parseTraits(args)
			if err != nil {
				return err
			}
			comp := trait.NewComposition(traits...)
			closure := comp.WithDependencies()
			report := composeReport{
				ID:      comp.ID(),
				Traits:  comp.Names(),
				Valid:   comp.IsValid(),
				Missing: comp.MissingDependencies().Names(),
				Closure: closureReport{ID: closure.ID(), Traits: closure.Names()},
			}
			opts.logger.Debug("composition evaluated",
				"id", report.ID, "valid", report.Valid, "closure", report.Closure.ID)
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
