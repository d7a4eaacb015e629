package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coalton-labs/memvault/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [content]",
		Short: "Ingest text into the store",
		Long:  "Ingest text as memory records, one per substantial line. Content can be a positional arg, piped via stdin, or read from a file or directory.",
		Run:   runIngest,
	}

	cmd.Flags().StringP("source", "s", "stdin", "Source label recorded on each record")
	cmd.Flags().StringP("category", "c", "", "Category (default: general)")
	cmd.Flags().String("type", "", "Record type: episodic, fact, preference, procedure, mistake")
	cmd.Flags().String("file", "", "Ingest a single file (source = file path)")
	cmd.Flags().String("dir", "", "Ingest every matching file in a directory")
	cmd.Flags().String("pattern", "*.md", "Glob pattern for --dir")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	source, _ := cmd.Flags().GetString("source")
	category, _ := cmd.Flags().GetString("category")
	recType, _ := cmd.Flags().GetString("type")
	file, _ := cmd.Flags().GetString("file")
	dir, _ := cmd.Flags().GetString("dir")
	pattern, _ := cmd.Flags().GetString("pattern")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var added int
	switch {
	case dir != "":
		added, err = s.IngestDirectory(dir, pattern, category)
	case file != "":
		added, err = s.IngestFile(file, category)
	default:
		var content string
		if len(args) > 0 {
			content = strings.Join(args, " ")
		} else {
			stat, _ := os.Stdin.Stat()
			if (stat.Mode() & os.ModeCharDevice) == 0 {
				b, readErr := io.ReadAll(os.Stdin)
				if readErr != nil {
					exitErr("read stdin", readErr)
				}
				content = string(b)
			}
		}
		if strings.TrimSpace(content) == "" {
			exitErr("ingest", fmt.Errorf("content is required (positional arg, stdin, --file, or --dir)"))
		}
		added, err = s.Ingest(store.IngestParams{
			Content:  content,
			Source:   source,
			Category: category,
			Type:     recType,
		})
	}
	if err != nil {
		exitErr("ingest", err)
	}

	fmt.Printf(`{"ok":true,"added":%d,"pending":%d}`+"\n", added, s.WALPendingCount())
}
