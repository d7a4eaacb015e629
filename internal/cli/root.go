// Package cli implements the memvault CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coalton-labs/memvault/internal/config"
	"github.com/coalton-labs/memvault/internal/store"
)

var (
	workspaceFlag string
	configFlag    string
	formatFlag    string
	verboseFlag   bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memvault",
	Short: "Crash-safe local memory store with ranked recall",
	Long:  "A file-based memory store. Ingest text, search it with decay-aware ranking, forget what no longer matters. No daemon, no database server.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace directory (default: $MEMVAULT_WORKSPACE or ~/.memvault)")
	RootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: <workspace>/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
}

func getWorkspace() string {
	if workspaceFlag != "" {
		return workspaceFlag
	}
	if env := os.Getenv("MEMVAULT_WORKSPACE"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memvault")
}

func newLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if verboseFlag {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

func openStore() (*store.Engine, error) {
	ws := getWorkspace()
	cfg, err := config.Load(ws, configFlag)
	if err != nil {
		return nil, err
	}
	return store.Open(ws, store.WithConfig(cfg), store.WithLogger(newLogger()))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
