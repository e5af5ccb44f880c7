package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the result database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m SchemaMigrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m SchemaMigrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					return printStatus(cmd, m)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m SchemaMigrator) error { return printStatus(cmd, m) })
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(SchemaMigrator) error) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := cc.Deps.Migrator(cc.Config.Database, cc.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			cc.Logger.Warn("migrator not closed", logging.Err(err))
		}
	}()
	return fn(m)
}

func printStatus(cmd *cobra.Command, m SchemaMigrator) error {
	version, dirty, err := m.Status()
	if err != nil {
		return err
	}
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if cc.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{"version": version, "dirty": dirty})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

//Personal.AI order the ending
