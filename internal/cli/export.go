package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export records as JSON lines",
		Long:  "Export the live set as newline-delimited JSON, to a file or stdout.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	out := os.Stdout
	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			exitErr("create export file", err)
		}
		defer f.Close()
		out = f
	}

	exported, err := s.Export(out)
	if err != nil {
		exitErr("export", err)
	}
	if len(args) > 0 {
		fmt.Printf(`{"ok":true,"exported":%d}`+"\n", exported)
	}
}
