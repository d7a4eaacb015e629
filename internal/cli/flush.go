package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Persist pending writes to shard storage",
		Long:  "Write the full live set to shards and clear the journal. Ingest does this automatically at the write threshold; flush forces it now.",
		Run:   runFlush,
	}

	RootCmd.AddCommand(cmd)
}

func runFlush(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Flush(); err != nil {
		exitErr("flush", err)
	}
	fmt.Printf(`{"ok":true,"records":%d}`+"\n", s.Len())
}
