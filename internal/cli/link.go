package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link [hash] [hash]",
		Short: "Link two records",
		Long:  "Create a bidirectional relation between two records by identity hash.",
		Args:  cobra.ExactArgs(2),
		Run:   runLink,
	}

	cmd.Flags().Bool("rm", false, "Remove the link instead")

	RootCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	remove, _ := cmd.Flags().GetBool("rm")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if remove {
		err = s.Unlink(args[0], args[1])
	} else {
		err = s.Link(args[0], args[1])
	}
	if err != nil {
		exitErr("link", err)
	}
	if err := s.Flush(); err != nil {
		exitErr("flush", err)
	}

	fmt.Printf(`{"ok":true,"from":%q,"to":%q,"removed":%t}`+"\n", args[0], args[1], remove)
}
