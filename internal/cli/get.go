package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [hash]",
		Short: "Retrieve a record by identity hash",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("related", false, "Also print linked records")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	related, _ := cmd.Flags().GetBool("related")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rec, ok := s.Get(args[0])
	if !ok {
		exitErr("get", fmt.Errorf("record not found: %s", args[0]))
	}
	printRecord(rec)

	if related {
		linked, err := s.RelatedTo(rec.Hash)
		if err != nil {
			exitErr("get", err)
		}
		printRecords(linked)
	}
}
