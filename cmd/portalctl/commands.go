package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	"github.com/zatekoja/serviceportal/pkg/config"
	"github.com/zatekoja/serviceportal/pkg/secrets"
)

const defaultExportPath = "service_requests_export.csv"

func newRootCmd() *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:          "portalctl",
		Short:        "Service portal maintenance commands",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (defaults to DATABASE_URL)")

	open := func() (*sqldb.Client, error) {
		if _, err := secrets.NewLoader(secrets.VaultConfigFromEnv()).Apply(context.Background()); err != nil {
			return nil, err
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if databaseURL != "" {
			cfg.Database.URL = databaseURL
		}
		return sqldb.NewClient(&cfg.Database)
	}

	root.AddCommand(newMigrateCmd(open), newResetCmd(open), newExportCmd(open))
	return root
}

type opener func() (*sqldb.Client, error)

func bootstrapFor(client *sqldb.Client) *services.BootstrapService {
	return services.NewBootstrapService(migrations.New(client), database.NewServiceAdapter(client))
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and seed the service catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := open()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := bootstrapFor(client).Run(cmd.Context()); err != nil {
				return fmt.Errorf("migrate failed: %w", err)
			}
			cmd.Println("Database is up to date.")
			return nil
		},
	}
}

func newResetCmd(open opener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and bootstrap an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all data; pass --yes to confirm")
			}

			client, err := open()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := bootstrapFor(client).Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			cmd.Println("Database reset and reseeded.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return cmd
}

func newExportCmd(open opener) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all service requests as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := open()
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := exportRequests(cmd.Context(), client, out)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			cmd.Printf("Exported %d service requests to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", defaultExportPath, "output CSV file")
	return cmd
}

func exportRequests(ctx context.Context, client *sqldb.Client, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	n, err := services.NewExportService(database.NewServiceRequestAdapter(client)).WriteCSV(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
