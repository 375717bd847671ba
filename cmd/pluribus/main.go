// Command pluribus is a local authenticating gateway that relays Messages
// API requests across one or more Claude Code subscription credentials.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
)

func main() {
	if err := logger.Init("info"); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	root := &cobra.Command{
		Use:           "pluribus",
		Short:         "Claude Code API relay service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newLoginCmd(), newTestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}
