// Implements: prd007-quanta-cli (R2.2: version command).
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/quanta/pkg/quanta"
)

const modulePath = "github.com/mesh-intelligence/quanta"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quanta version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "quanta v%s\nmodule: %s\n", quanta.Version, modulePath)
			return nil
		},
	}
}
