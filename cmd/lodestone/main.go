// Command lodestone runs the control plane for self-hosted game server
// instances: an HTTP API for creating, operating and backing up instances,
// plus the supporting stores and event stream.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/lodestone/internal/logger"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "0.3.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "lodestone",
		Short:         "Control plane for self-hosted game server instances",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the configuration file (default: search the user config directory)")

	root.AddCommand(
		newServeCommand(&configPath),
		newConfigCommand(),
	)

	return root
}
