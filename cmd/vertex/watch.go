package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PHTNCx64/vertex/plugin"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Set, remove, enable/disable, or list hardware watchpoints",
}

var (
	watchSize   uint8
	watchAccess string
)

var watchSetCmd = &cobra.Command{
	Use:   "set <address>",
	Short: "Set a hardware watchpoint at an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", args[0], err)
		}
		access, err := parseWatchAccess(watchAccess)
		if err != nil {
			return err
		}
		id, err := client.SetWatchpoint(plugin.WatchpointSpec{Address: addr, Size: watchSize, Access: access})
		if err != nil {
			return err
		}
		fmt.Printf("watchpoint %d set at %#x\n", id, addr)
		return nil
	},
}

var watchRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a watchpoint by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid watchpoint id %q: %w", args[0], err)
		}
		return client.RemoveWatchpoint(uint32(id))
	},
}

var watchEnableCmd = &cobra.Command{
	Use:   "enable <id> <true|false>",
	Short: "Enable or disable a watchpoint by ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid watchpoint id %q: %w", args[0], err)
		}
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid enabled value %q: %w", args[1], err)
		}
		return client.EnableWatchpoint(uint32(id), enabled)
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tracked watchpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		wps, err := client.CachedWatchpoints()
		if err != nil {
			return err
		}
		for _, wp := range wps {
			fmt.Printf("%d  %#x  size=%d  slot=%d  hits=%d  last_accessor=%#x\n",
				wp.ID, wp.Address, wp.Size, wp.RegisterIndex, wp.HitCount, wp.LastAccessorAddress)
		}
		return nil
	},
}

func parseWatchAccess(s string) (plugin.WatchAccess, error) {
	switch strings.ToLower(s) {
	case "read":
		return plugin.WatchRead, nil
	case "write":
		return plugin.WatchWrite, nil
	case "readwrite", "rw":
		return plugin.WatchReadWrite, nil
	case "execute", "exec":
		return plugin.WatchExecute, nil
	default:
		return 0, fmt.Errorf("unknown --access %q (want read, write, readwrite, or execute)", s)
	}
}

func init() {
	watchSetCmd.Flags().Uint8Var(&watchSize, "size", 4, "watch size in bytes: 1, 2, 4, or 8")
	watchSetCmd.Flags().StringVar(&watchAccess, "access", "write", "read, write, readwrite, or execute")
	watchCmd.AddCommand(watchSetCmd, watchRmCmd, watchEnableCmd, watchListCmd)
}
