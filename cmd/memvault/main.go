package main

import (
	"os"

	"github.com/coalton-labs/memvault/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
