package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import records from JSON lines",
		Long:  "Import newline-delimited JSON records from a file or stdin. Records already present are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	in := os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open import file", err)
		}
		defer f.Close()
		in = f
	}

	imported, err := s.Import(in)
	if err != nil {
		exitErr("import", err)
	}
	if err := s.Flush(); err != nil {
		exitErr("flush", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
