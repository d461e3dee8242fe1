package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/courseware/labgrader/internal/config"
	"github.com/courseware/labgrader/internal/launch"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [projectDir]",
		Short: "Check the config and entry resolution without launching anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			fmt.Printf("Config OK (runtime: %s, ports %d-%d)\n",
				cfg.Runtime.Command,
				cfg.Discovery.BasePort, cfg.Discovery.BasePort+cfg.Discovery.ScanPorts-1)

			projectDir := "."
			if len(args) > 0 {
				projectDir = args[0]
			}
			plan, err := launch.ResolveEntry(projectDir, cfg.Runtime)
			if err != nil {
				if errors.Is(err, launch.ErrNoEntry) {
					return fmt.Errorf("%s: no entry point (looked for %s, a package.json start script, and %s)",
						projectDir, strings.Join(cfg.Runtime.Entries, ", "), cfg.Runtime.FallbackEntry)
				}
				return err
			}
			fmt.Printf("Entry: %s (via %s)\n", plan.Describe(), plan.Strategy)
			if cfg.Sandbox.Image != "" {
				fmt.Printf("Sandbox image: %s\n", cfg.Sandbox.Image)
			}
			return nil
		},
	}
}
