package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/migrate"
)

type connector func(ctx context.Context) (*sql.DB, *logger.Logger, func(), error)

func newRootCmd(connect connector) *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the UniformHub Postgres schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the bundled set")

	withRunner := func(fn func(cmd *cobra.Command, runner *migrate.Runner, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			conn, logg, closeDB, err := connect(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer closeDB()
			runner, err := migrate.NewRunner(conn, migrate.Source(dir), logg)
			if err != nil {
				return err
			}
			return fn(cmd, runner, args)
		}
	}
	printSteps := func(cmd *cobra.Command, steps []migrate.Step, err error) error {
		for _, step := range steps {
			fmt.Fprintf(cmd.OutOrStdout(), "%-4s %d %s (%s)\n", step.Direction, step.Version, step.Path, step.Duration.Round(time.Millisecond))
		}
		if err == nil && len(steps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema already current")
		}
		return err
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(cmd *cobra.Command, runner *migrate.Runner, _ []string) error {
				steps, err := runner.Up(cmd.Context())
				return printSteps(cmd, steps, err)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(cmd *cobra.Command, runner *migrate.Runner, _ []string) error {
				steps, err := runner.Down(cmd.Context())
				return printSteps(cmd, steps, err)
			}),
		},
		&cobra.Command{
			Use:   "to VERSION",
			Short: "Migrate up or down until VERSION is the latest applied",
			Args:  cobra.ExactArgs(1),
			RunE: withRunner(func(cmd *cobra.Command, runner *migrate.Runner, args []string) error {
				version, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("version %q is not a YYYYMMDDHHMMSS number", args[0])
				}
				steps, err := runner.To(cmd.Context(), version)
				return printSteps(cmd, steps, err)
			}),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Roll back every applied migration",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(cmd *cobra.Command, runner *migrate.Runner, _ []string) error {
				steps, err := runner.Reset(cmd.Context())
				return printSteps(cmd, steps, err)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether each is applied",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(cmd *cobra.Command, runner *migrate.Runner, _ []string) error {
				statuses, err := runner.Status(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tAPPLIED AT\tFILE")
				for _, s := range statuses {
					applied := "pending"
					if s.Applied {
						applied = s.AppliedAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, applied, s.Path)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Write an empty timestamped migration",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				target := dir
				if target == "" {
					target = migrate.SourceDir
				}
				path, err := migrate.Create(target, strings.Join(args, " "), time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check migration names and goose annotations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := migrate.Validate(migrate.Source(dir)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
				return nil
			},
		},
	)
	return root
}
