package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Refresh and list the server's process enumeration cache",
}

var processRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-enumerate processes on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.RefreshProcessList()
	},
}

var processListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the last refreshed process list",
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := client.CachedProcessList()
		if err != nil {
			return err
		}
		for _, p := range procs {
			fmt.Printf("%d  %s\n", p.PID, p.Name)
		}
		return nil
	},
}

func init() {
	processCmd.AddCommand(processRefreshCmd, processListCmd)
}
