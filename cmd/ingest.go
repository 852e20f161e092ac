package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minirag/minirag/db"
)

var doReset bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index a project's chunks into its vector collection",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&doReset, "reset", false, "drop and recreate the collection and its cache first")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Metadata schema must exist before chunks can be read.
	if err := db.Migrate(a.cfg.PostgresURL(), a.logger); err != nil {
		return err
	}

	indexed, err := a.system.IndexProject(ctx, projectID, doReset)
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d chunks into project %d\n", indexed, projectID)
	return nil
}
