package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/urbanopt/internal/scenario"
)

var spaceInspectPath string

var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Validate a parameter space and report its size",
	RunE: func(cmd *cobra.Command, args []string) error {
		space, err := scenario.LoadSpace(spaceInspectPath)
		if err != nil {
			return eris.Wrap(err, "load space")
		}
		if err := space.Validate(); err != nil {
			return eris.Wrap(err, "validate space")
		}
		total, err := space.Count()
		if err != nil {
			return eris.Wrap(err, "count space")
		}

		renderSpace(os.Stdout, space, total)
		return nil
	},
}

func init() {
	spaceCmd.Flags().StringVar(&spaceInspectPath, "space", "", "parameter space YAML file (required)")
	_ = spaceCmd.MarkFlagRequired("space")
	rootCmd.AddCommand(spaceCmd)
}
