// Implements: prd007-quanta-cli (R4: archive commands); prd005-checkpoint-archive R6.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/quanta/pkg/types"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and prune the checkpoint archive",
	}
	cmd.AddCommand(newArchiveListCmd())
	cmd.AddCommand(newArchiveShowCmd())
	cmd.AddCommand(newArchivePruneCmd())
	return cmd
}

func newArchiveListCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived checkpoints, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := attachArchive()
			if err != nil {
				return err
			}
			defer backend.Detach()

			checkpoints, err := backend.List(kind)
			if err != nil {
				return fmt.Errorf("list checkpoints: %w", err)
			}
			if flags.jsonMode {
				out, err := json.MarshalIndent(checkpoints, "", "  ")
				if err != nil {
					return fmt.Errorf("encode checkpoints: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			for _, cp := range checkpoints {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-9s  %s\n",
					cp.CheckpointID, cp.CreatedAt.Format("2006-01-02 15:04:05"), cp.Kind, cp.Location)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d checkpoint(s)\n", len(checkpoints))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "restrict to manual or automatic checkpoints")
	return cmd
}

func newArchiveShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <checkpoint-id>",
		Short: "Print one archived checkpoint, snapshot included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := attachArchive()
			if err != nil {
				return err
			}
			defer backend.Detach()

			cp, err := backend.Get(args[0])
			if err != nil {
				return fmt.Errorf("get checkpoint: %w", err)
			}
			if flags.jsonMode {
				out, err := json.MarshalIndent(cp, "", "  ")
				if err != nil {
					return fmt.Errorf("encode checkpoint: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id:       %s\nkind:     %s\nlocation: %s\ncreated:  %s\n",
				cp.CheckpointID, cp.Kind, cp.Location, cp.CreatedAt.Format("2006-01-02 15:04:05"))

			// Re-render the JSON snapshot as YAML for readability.
			var snapshot map[string]any
			if err := json.Unmarshal(cp.Snapshot, &snapshot); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), string(cp.Snapshot))
				return nil
			}
			rendered, err := yaml.Marshal(snapshot)
			if err != nil {
				return fmt.Errorf("render snapshot: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(rendered))
			return nil
		},
	}
}

func newArchivePruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest checkpoints beyond --keep",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := attachArchive()
			if err != nil {
				return err
			}
			defer backend.Detach()

			deleted, err := backend.Prune(keep)
			if err != nil {
				return fmt.Errorf("prune checkpoints: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d checkpoint(s), kept at most %d\n", deleted, keep)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", types.DefaultArchiveKeep, "number of checkpoints to retain")
	return cmd
}
