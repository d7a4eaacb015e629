package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/coalton-labs/memvault/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search records with ranked relevance",
		Long:  "Search records with BM25-style ranking, decay weighting, and an access-frequency boost. Repeated searches are served from the read cache.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().StringP("category", "c", "", "Filter by category")
	cmd.Flags().StringP("tags", "t", "", "Require tags (comma-separated)")
	cmd.Flags().Float64("min-score", 0, "Minimum normalized relevance (default 0.01)")
	cmd.Flags().Bool("no-decay", false, "Disable decay weighting")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	category, _ := cmd.Flags().GetString("category")
	tagsStr, _ := cmd.Flags().GetString("tags")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	noDecay, _ := cmd.Flags().GetBool("no-decay")

	var tags []string
	for _, t := range strings.Split(tagsStr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(store.SearchParams{
		Query:    strings.Join(args, " "),
		Limit:    limit,
		Category: category,
		Tags:     tags,
		MinScore: minScore,
		NoDecay:  noDecay,
	})
	if err != nil {
		exitErr("search", err)
	}
	printResults(results)

	// Reinforcement and access counts changed; persist them.
	if err := s.Flush(); err != nil {
		exitErr("flush", err)
	}
}
