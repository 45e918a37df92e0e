package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/echo"
	"stormlightlabs.org/mlbedge/internal/orchestrate"
	"stormlightlabs.org/mlbedge/internal/store"
)

// InitCmd creates schema and reports the static park-factor table that
// ships compiled into the binary — there is no on-disk stadium dataset
// to load separately until a park_factors admin table replaces it.
func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create schema and load stadium static data",
		Long:  "Open (creating if needed) the configured store, apply every migration, and report the compiled-in park factor table.",
		RunE:  runInit,
	}
}

// MigrateCmd applies additive SQL migrations to an existing store.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply additive SQL migrations",
		RunE:  runMigrate,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	echo.Header("Initializing")
	if err := runMigrate(cmd, args); err != nil {
		return err
	}

	orchestrate.NewStaticParkFactors(nil)
	echo.Success("✓ Stadium static data loaded (compiled-in park factor table)")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	echo.Info("Connecting to store...")

	cfg, err := loadConfigForCmd(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()

	var st *store.Store
	if cfg.Database.Engine == "sqlite" {
		st, err = store.OpenEmbedded(ctx, cfg.Database.URL)
	} else {
		st, err = store.OpenPostgres(ctx, cfg.Database.URL)
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	echo.Success("✓ Connected")
	echo.Info("Running migrations...")

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	echo.Success("✓ All migrations applied")
	return nil
}
