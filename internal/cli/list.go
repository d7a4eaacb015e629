package cli

import (
	"github.com/spf13/cobra"

	"github.com/coalton-labs/memvault/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Run:   runList,
	}

	cmd.Flags().StringP("category", "c", "", "Filter by category")
	cmd.Flags().StringP("source", "s", "", "Filter by source substring")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	printRecords(s.List(store.ListParams{
		Category: category,
		Source:   source,
		Limit:    limit,
	}))
}
