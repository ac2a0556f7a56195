package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mdm-platform/feedhub/internal/api"
	"mdm-platform/feedhub/internal/db"
	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/metrics"
)

func newIngestCmd() *cobra.Command {
	var (
		req          ingestion.Request
		deleteAfter  bool
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one import of a data source against the configured database",
		Long: `Run one import of a data source against the configured database. The run
is recorded like any other import with triggeredBy "cli".

Examples:
  feedctl ingest --data-source 6f1c...
  feedctl ingest --data-source 6f1c... --template 9a2e... --path /outbound/stock.csv --skip-existing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			gdb, err := db.InitPostgresORM(ctx, cfg.Postgres.DSN())
			if err != nil {
				return err
			}
			defer db.Close(gdb)
			if err := db.Migrate(gdb); err != nil {
				return err
			}

			deps, err := api.InitDependencies(ctx, cfg, gdb, metrics.NewMetricsRegistry())
			if err != nil {
				return err
			}
			defer deps.Close()

			if cmd.Flags().Changed("delete-after") {
				req.Options.DeleteAfterProcessing = &deleteAfter
			}
			if cmd.Flags().Changed("skip-existing") {
				req.Options.SkipExistingProducts = &skipExisting
			}
			req.TriggeredBy = ingestion.TriggerCLI

			result := deps.Engine.RunIngestion(ctx, req)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success() {
				return fmt.Errorf("import %s: %s", result.Status, result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.DataSourceID, "data-source", "d", "", "data source id")
	cmd.Flags().StringVarP(&req.MappingTemplateID, "template", "t", "", "mapping template id, defaults to the data source's")
	cmd.Flags().StringVarP(&req.Path, "path", "p", "", "remote path, defaults to the data source's")
	cmd.Flags().BoolVar(&deleteAfter, "delete-after", false, "delete the remote file after a successful run")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "leave products that already exist untouched")
	_ = cmd.MarkFlagRequired("data-source")
	return cmd
}
