// Implements: prd007-quanta-cli (R2.1: init command); prd008-configuration-directories (R1, R2, R8).
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize quanta configuration and archive storage",
		Long:  "Create configuration and data directories, then initialize the archive backend.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	backend, err := attachArchive()
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := backend.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Quanta initialized successfully")
	return nil
}
