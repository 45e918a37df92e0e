package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stormlightlabs.org/mlbedge/internal/healthsrv"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// ServeCmd runs the health/metrics listener used by process supervisors
// and schedulers, not a public API.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the health/metrics HTTP listener",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default: config server host:port)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	e, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if addr == "" {
		cfg, err := loadConfigForCmd(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	srv := healthsrv.New(addr, e.Pipeline.Store, version, e.Log)
	return srv.ListenAndServe(cmd.Context())
}
