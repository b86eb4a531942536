// Command kassalapp-todo exposes Kassalapp shopping lists as to-do lists
// with a user-defined item order.
//
// It polls every shopping list of the account, keeps a persisted sort
// weight per item, and serves the result over HTTP, WebSocket and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "kassalapp-todo",
		Short:        "Kassalapp shopping lists as ordered to-do lists",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default $KASSALAPP_CONFIG or "+defaultConfigPath+")")
	cmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newServeCmd(a),
		newListsCmd(a),
		newItemsCmd(a),
		newWeightsCmd(a),
		newTokenCmd(a),
		newDBCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kassalapp-todo %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
