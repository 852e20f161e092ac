package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve matching documents without generating an answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "number of documents to retrieve (0 = configured default)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	docs, err := a.system.Search(ctx, projectID, strings.Join(args, " "), searchLimit)
	if err != nil {
		return err
	}

	for i, doc := range docs {
		fmt.Printf("%d. [%.4f] %s\n", i+1, doc.Score, doc.Text)
	}
	return nil
}
