package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/bandstand/internal/instance"
	"github.com/dyluth/bandstand/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	initInstanceName string
	forceInit        bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Bandstand project",
	Long: `Initialize a new Bandstand project with a default configuration.

Creates:
  • bandstand.yml - instance name, Redis settings, realtime channels and samples

The instance name defaults to the current directory name when it is a valid
DNS label, otherwise "default".

Use --force to reinitialize an existing project (WARNING: overwrites bandstand.yml).`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initInstanceName, "name", "n", "", "Instance name (defaults to the directory name)")
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (overwrites bandstand.yml)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if !forceInit {
		if err := scaffold.CheckExisting(dir); err != nil {
			return err
		}
	}

	name := initInstanceName
	if name == "" {
		name = defaultInstanceName(dir)
	}

	path, err := scaffold.Initialize(dir, name, forceInit)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(path, name)
	return nil
}

func defaultInstanceName(dir string) string {
	base := filepath.Base(dir)
	if instance.ValidateName(base) == nil {
		return base
	}
	return "default"
}
