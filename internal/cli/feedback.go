package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "feedback [good|bad|neutral] [hash...]",
		Short: "Grade retrieved records",
		Long:  "Apply a retrieval outcome to records: good boosts importance, bad reduces it, neutral only logs. Events are appended to outcomes.jsonl.",
		Run:   runFeedback,
	}

	cmd.Flags().Int("history", 0, "Show the N most recent feedback events instead")

	RootCmd.AddCommand(cmd)
}

func runFeedback(cmd *cobra.Command, args []string) {
	history, _ := cmd.Flags().GetInt("history")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if history > 0 {
		events, err := s.FeedbackHistory(history)
		if err != nil {
			exitErr("feedback", err)
		}
		if events == nil {
			fmt.Println("[]")
			return
		}
		printJSON(events)
		return
	}

	if len(args) < 2 {
		exitErr("feedback", fmt.Errorf("usage: feedback [good|bad|neutral] [hash...]"))
	}

	mutated, err := s.Feedback(args[1:], args[0])
	if err != nil {
		exitErr("feedback", err)
	}
	if err := s.Flush(); err != nil {
		exitErr("flush", err)
	}

	fmt.Printf(`{"ok":true,"outcome":%q,"mutated":%d}`+"\n", args[0], mutated)
}
