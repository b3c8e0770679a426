package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rl1809/aircraft-factory/internal/adapter/auth"
	"github.com/rl1809/aircraft-factory/internal/core/service"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			if err := a.store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("%s schema is up to date (%s)\n", color.New(color.FgGreen).Sprint("OK"), a.store.Dialect().Name)
			return nil
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the catalog, teams and default users",
		Long: "Seed creates the part types, aircraft models, their requirements, one team per part type,\n" +
			"the assembly team and the configured users. Running it again changes nothing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			if err := a.store.Migrate(ctx); err != nil {
				return err
			}
			seeder := service.NewSeeder(a.store, auth.BcryptHasher{Cost: a.cfg.Auth.BcryptCost})
			report, err := seeder.Run(ctx, a.cfg.SeedUsers())
			if err != nil {
				return err
			}

			fmt.Printf("part types: %d\n", report.PartTypes)
			fmt.Printf("aircraft:   %d\n", report.Aircraft)
			fmt.Printf("teams:      %d\n", report.Teams)
			if len(report.CreatedUsers) == 0 {
				fmt.Printf("users:      %s\n", color.New(color.FgBlue).Sprint("no new users"))
			}
			for _, u := range report.CreatedUsers {
				fmt.Printf("  %s %s\n", color.New(color.FgGreen).Sprint("CREATE"), u)
			}
			return nil
		},
	}
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute inventory quantities from unused parts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.store.Close()

			drifts, err := service.NewInventoryService(a.store).Reconcile(ctx)
			if err != nil {
				return err
			}
			if len(drifts) == 0 {
				fmt.Printf("%s inventory matches unused parts\n", color.New(color.FgGreen).Sprint("OK"))
				return nil
			}
			for _, d := range drifts {
				fmt.Printf("  %s part type %d / aircraft %d: %d -> %d\n",
					color.New(color.FgYellow).Sprint("FIXED"),
					d.Key.PartTypeID, d.Key.AircraftID, d.Stored, d.Computed)
			}
			return nil
		},
	}
}
