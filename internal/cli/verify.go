// Implements: prd007-quanta-cli (R3: verify command, R8: output modes).
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/quanta/pkg/fabric"
	"github.com/mesh-intelligence/quanta/pkg/state"
	"github.com/mesh-intelligence/quanta/pkg/types"
)

func newVerifyCmd() *cobra.Command {
	var (
		repair   bool
		asFabric bool
	)
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a serialized state or fabric file",
		Long: "Verify the consistency of a JSON-serialized quantum state (or, with\n" +
			"--fabric, a topology fabric). With --repair the deterministic fixes are\n" +
			"applied and the file is rewritten.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args[0], repair, asFabric)
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "apply deterministic fixes and rewrite the file")
	cmd.Flags().BoolVar(&asFabric, "fabric", false, "treat the file as a topology fabric")
	return cmd
}

func runVerify(cmd *cobra.Command, path string, repair, asFabric bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var result types.VerificationResult
	var repaired any

	if asFabric {
		var f fabric.Fabric
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decode fabric: %w", err)
		}
		result = f.VerifyContinuity()
		if repair && !result.Success {
			fixed, err := f.RepairContinuity(result.Errors)
			if err != nil {
				return fmt.Errorf("repair fabric: %w", err)
			}
			repaired = fixed
		}
	} else {
		var s types.QuantumState
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode state: %w", err)
		}
		result = state.Verify(&s)
		if repair && !result.Success {
			fixed, err := state.Repair(&s, result.Errors)
			if err != nil {
				return fmt.Errorf("repair state: %w", err)
			}
			repaired = fixed
		}
	}

	if err := printResult(cmd, result); err != nil {
		return err
	}

	if repaired != nil {
		out, err := json.MarshalIndent(repaired, "", "  ")
		if err != nil {
			return fmt.Errorf("encode repaired entity: %w", err)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("rewrite %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "repaired %d issue(s), wrote %s\n", len(result.Errors), path)
		return nil
	}
	if !result.Success {
		return fmt.Errorf("verification failed with %d issue(s)", len(result.Errors))
	}
	return nil
}

// printResult writes the verification result in JSON or human-readable
// form depending on the --json flag.
func printResult(cmd *cobra.Command, result types.VerificationResult) error {
	if flags.jsonMode {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "success: %v\nscore: %.4f\n", result.Success, result.Score)
	for name, value := range result.Metrics {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %.4f\n", name, value)
	}
	for _, verr := range result.Errors {
		if verr.SubjectID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s (subject %s)\n", verr.Severity, verr.Code, verr.Message, verr.SubjectID)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", verr.Severity, verr.Code, verr.Message)
	}
	return nil
}
