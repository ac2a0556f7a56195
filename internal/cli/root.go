// Package cli provides the feedctl command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/logging"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd builds the feedctl command tree
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "feedctl",
		Short: "Supplier feed ingestion tooling",
		Long: `feedctl talks to supplier sources directly. It tests credentials, previews
remote files, lists remote paths, computes schedule activations and runs
imports against the configured database.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				logging.UseLogger(zap.NewNop())
				return nil
			}
			return logging.Init("development")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(newTestConnectionCmd())
	root.AddCommand(newSampleCmd())
	root.AddCommand(newPathsCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newNextRunCmd())
	root.AddCommand(newTokenCmd())
	return root
}

// Execute runs the command tree against os.Args. Interrupts cancel the
// command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads the same environment and CONFIG_FILE as the server
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// readCredentials takes inline JSON or a JSON/YAML file; exactly one must be set
func readCredentials(inline, file string) (map[string]any, error) {
	var raw []byte
	switch {
	case inline != "" && file != "":
		return nil, fmt.Errorf("use either --credentials or --credentials-file")
	case inline != "":
		raw = []byte(inline)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		raw = data
	default:
		return nil, fmt.Errorf("credentials are required")
	}

	// YAML is a superset of JSON, so one decoder serves both
	creds := map[string]any{}
	if err := yaml.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
