package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askLimit int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from a project's indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askLimit, "limit", 0, "number of documents to retrieve (0 = configured default)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	question := strings.Join(args, " ")

	result, err := a.system.Answer(ctx, projectID, question, askLimit)
	if err != nil {
		return err
	}

	if result.FromCache {
		a.logger.Debug("answer served from cache", "project_id", projectID)
	}
	fmt.Println(result.Answer)
	return nil
}
