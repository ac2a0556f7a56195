package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mdm-platform/feedhub/internal/ingestion"
)

// connectionFlags are shared by the commands that reach an unsaved connection
type connectionFlags struct {
	kind            string
	credentials     string
	credentialsFile string
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "connection kind: sftp, ftp, api or database")
	cmd.Flags().StringVarP(&f.credentials, "credentials", "c", "", "credentials as inline JSON")
	cmd.Flags().StringVarP(&f.credentialsFile, "credentials-file", "f", "", "credentials JSON or YAML file")
	_ = cmd.MarkFlagRequired("kind")
}

func (f *connectionFlags) resolve() (map[string]any, error) {
	return readCredentials(f.credentials, f.credentialsFile)
}

func newSampler() (*ingestion.Sampler, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return ingestion.NewSampler(nil, cfg.Ingestion), nil
}

func newTestConnectionCmd() *cobra.Command {
	var (
		conn    connectionFlags
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Connect to a source and run one read-only probe",
		Long: `Connect to a source and run one read-only probe.

Examples:
  feedctl test-connection --kind sftp -c '{"host":"sftp.example.com","username":"feed","password":"secret"}'
  feedctl test-connection --kind database -f ./warehouse.yaml --timeout 5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := conn.resolve()
			if err != nil {
				return err
			}
			sampler, err := newSampler()
			if err != nil {
				return err
			}

			result := sampler.TestConnection(cmd.Context(), conn.kind, raw, timeout)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("connection test failed: %s", result.Message)
			}
			return nil
		},
	}

	conn.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall probe deadline")
	return cmd
}

func newSampleCmd() *cobra.Command {
	var (
		conn      connectionFlags
		path      string
		limit     int
		delimiter string
		encoding  string
		sheet     string
		noHeader  bool
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Preview the first records of a remote feed",
		Long: `Preview the first records of a remote feed. Without --path the first
supported file under the connection's configured path is used.

Examples:
  feedctl sample --kind ftp -f ./supplier.json --limit 10
  feedctl sample --kind api -c '{"baseUrl":"https://api.example.com","endpoint":"/products","recordsPath":"data.items"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := conn.resolve()
			if err != nil {
				return err
			}
			sampler, err := newSampler()
			if err != nil {
				return err
			}

			opts := ingestion.SampleOptions{
				Limit:     limit,
				Delimiter: delimiter,
				Encoding:  encoding,
				Sheet:     sheet,
			}
			if cmd.Flags().Changed("no-header") {
				hasHeader := !noHeader
				opts.HasHeader = &hasHeader
			}

			result := sampler.PullSample(cmd.Context(), conn.kind, raw, path, opts)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("sample failed: %s", result.Message)
			}
			return nil
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVarP(&path, "path", "p", "", "remote file or directory")
	cmd.Flags().IntVarP(&limit, "limit", "n", ingestion.DefaultSampleLimit, "max records")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "csv delimiter")
	cmd.Flags().StringVar(&encoding, "encoding", "", "text encoding label, e.g. windows-1252")
	cmd.Flags().StringVar(&sheet, "sheet", "", "xlsx sheet name")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "treat the first csv row as data")
	return cmd
}

func newPathsCmd() *cobra.Command {
	var conn connectionFlags

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "List candidate remote paths of a connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := conn.resolve()
			if err != nil {
				return err
			}
			sampler, err := newSampler()
			if err != nil {
				return err
			}

			paths, err := sampler.ListPaths(cmd.Context(), conn.kind, raw)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	conn.register(cmd)
	return cmd
}
