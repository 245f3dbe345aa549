// Package cli implements the quanta command-line interface.
// Implements: prd007-quanta-cli (R1: root command structure, R6: global
// flags, R7: exit codes, R8: output modes); docs/ARCHITECTURE § CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/quanta/internal/logging"
	"github.com/mesh-intelligence/quanta/internal/paths"
	"github.com/mesh-intelligence/quanta/internal/sqlite"
	"github.com/mesh-intelligence/quanta/pkg/types"
)

// Exit codes (prd007-quanta-cli R7).
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	debug     bool
}

var flags rootFlags

// NewRootCmd creates the top-level "quanta" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quanta",
		Short: "A versioned, checkpointable state-management engine",
		Long: "Quanta manages versioned quantum states, checkpoint histories,\n" +
			"entanglement registries, and topology fabrics, with a SQLite\n" +
			"archive for exported checkpoints.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
	}

	// Global persistent flags (prd007-quanta-cli R6).
	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .quanta-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "verbose, human-readable logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newArchiveCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserError)
	}
}

// newLogger builds the CLI logger from the --debug flag.
func newLogger() (*zap.Logger, error) {
	return logging.New(flags.debug)
}

// attachArchive resolves directories, loads configuration, and attaches
// the SQLite archive backend. The caller must defer backend.Detach().
func attachArchive() (*sqlite.Backend, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	backend := sqlite.NewBackend(sqlite.WithLogger(logger))
	cfg := types.Config{
		Backend: v.GetString(cfgKeyBackend),
		DataDir: dataDir,
	}
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach archive: %w", err)
	}
	return backend, nil
}
