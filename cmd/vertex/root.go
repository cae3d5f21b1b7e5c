package main

import (
	"fmt"

	"github.com/spf13/cobra"

	vrpc "github.com/PHTNCx64/vertex/facade/rpc"
)

var (
	netFlag  string
	addrFlag string

	client *vrpc.Client
)

var rootCmd = &cobra.Command{
	Use:   "vertex",
	Short: "Process inspection, memory scanning, and debugging over a vertex facade/rpc server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "console" || cmd.Name() == "vertex" {
			// console dials lazily per REPL session; the bare root
			// command has nothing to dial for.
			return nil
		}
		c, err := vrpc.Dial(netFlag, addrFlag)
		if err != nil {
			return fmt.Errorf("dial %s %s: %w", netFlag, addrFlag, err)
		}
		client = c
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if client != nil {
			return client.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&netFlag, "network", "tcp", "transport for dialing the vertex server (tcp, unix)")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "127.0.0.1:4747", "address of a running vertex facade/rpc server")

	rootCmd.AddCommand(attachCmd, detachCmd, continueCmd, pauseCmd, stepCmd, scanCmd, breakCmd, watchCmd, consoleCmd, processCmd)
}
