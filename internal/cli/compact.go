package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Deduplicate and archive decayed records",
		Long:  "Remove duplicate records, move fully decayed records into archive.jsonl, and rewrite shard storage from the compacted set.",
		Run:   runCompact,
	}

	RootCmd.AddCommand(cmd)
}

func runCompact(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := s.Compact()
	if err != nil {
		exitErr("compact", err)
	}
	printJSON(res)
}
