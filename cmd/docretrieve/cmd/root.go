package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/docretrieve/internal/config"
	"github.com/aman-cerp/docretrieve/internal/logging"
)

var (
	configPath string
	debugMode  bool

	logCleanup func()
)

// NewRootCmd builds the docretrieve root command and wires its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docretrieve",
		Short: "Hybrid dense/sparse document retrieval service",
		Long: `docretrieve ingests a set of configured filesystem roots into a dense
vector index and a sparse lexical (BM25) index, then serves hybrid
retrieval over HTTP.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. YAML config file (--config, default ./docretrieve.yaml)
  3. DOCRETRIEVE_* environment variables`,
		SilenceUsage:      true,
		PersistentPreRunE: setupAmbient,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCleanup != nil {
				logCleanup()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "docretrieve.yaml", "path to the YAML configuration file")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to "+logging.DefaultLogDir())

	root.AddCommand(newIngestCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// setupAmbient wires structured logging before any subcommand runs: JSON logs
// always go to a rotating file under ~/.docretrieve/logs/ and to stderr, at
// info level by default and debug level under --debug. The ingest command
// logs to ingest.log, every other command to server.log.
func setupAmbient(cmd *cobra.Command, args []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = true
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	if cmd.Name() == "ingest" {
		logCfg.FilePath = logging.IngestLogPath()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	slog.SetDefault(logger)
	logCleanup = cleanup
	return nil
}

// loadRetrievalContext loads the YAML config at configPath (if it exists)
// and resolves it into an immutable config.RetrievalContext, per
// internal/config's "no package-level config globals" design.
func loadRetrievalContext() (*config.RetrievalContext, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return config.NewRetrievalContext(cfg)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
