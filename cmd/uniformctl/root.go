package main

import (
	"context"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// opener connects to the application database and returns its closer.
type opener func(ctx context.Context) (*gorm.DB, func(), error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "uniformctl",
		Short:         "Operator tooling for the UniformHub backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPromoteCmd(open), newSeedCmd(open))
	return root
}
