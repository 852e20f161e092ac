package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a project's collection state",
	RunE:  runInfo,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete a project's vector collection",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(resetCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	info, err := a.system.CollectionInfo(ctx, projectID)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	deleted, err := a.system.ResetCollection(ctx, projectID)
	if err != nil {
		return err
	}

	if deleted {
		fmt.Printf("collection for project %d deleted\n", projectID)
	} else {
		fmt.Printf("no collection for project %d\n", projectID)
	}
	return nil
}
