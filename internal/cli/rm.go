package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Forget records by topic, age, or hash",
		Long:  "Forget records. Every removal is written to the audit log and flushed immediately.",
		Run:   runRm,
	}

	cmd.Flags().String("topic", "", "Forget records mentioning a topic")
	cmd.Flags().String("before", "", "Forget records created before a date (YYYY-MM-DD)")
	cmd.Flags().String("hash", "", "Purge one record by identity hash")

	RootCmd.AddCommand(cmd)

	audit := &cobra.Command{
		Use:   "audit",
		Short: "Show the forgetting audit log",
		Run:   runAudit,
	}
	RootCmd.AddCommand(audit)
}

func runRm(cmd *cobra.Command, args []string) {
	topic, _ := cmd.Flags().GetString("topic")
	before, _ := cmd.Flags().GetString("before")
	hash, _ := cmd.Flags().GetString("hash")

	set := 0
	for _, v := range []string{topic, before, hash} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		exitErr("rm", fmt.Errorf("exactly one of --topic, --before, --hash is required"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var forgotten int
	switch {
	case topic != "":
		forgotten, err = s.ForgetTopic(topic)
	case before != "":
		forgotten, err = s.ForgetBefore(before)
	default:
		forgotten, err = s.Purge(hash)
	}
	if err != nil {
		exitErr("rm", err)
	}

	fmt.Printf(`{"ok":true,"forgotten":%d}`+"\n", forgotten)
}

func runAudit(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entries, err := s.AuditLog()
	if err != nil {
		exitErr("audit", err)
	}
	if entries == nil {
		fmt.Println("[]")
		return
	}
	printJSON(entries)
}
