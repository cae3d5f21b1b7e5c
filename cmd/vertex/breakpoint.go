package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PHTNCx64/vertex/breakpoint"
	"github.com/PHTNCx64/vertex/plugin"
)

var breakCmd = &cobra.Command{
	Use:   "break",
	Short: "Set, remove, enable/disable, or list breakpoints",
}

var breakKind string

var breakSetCmd = &cobra.Command{
	Use:   "set <address>",
	Short: "Set a breakpoint at an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", args[0], err)
		}
		kind := plugin.Software
		if strings.EqualFold(breakKind, "hardware") {
			kind = plugin.Hardware
		}
		id, err := client.SetBreakpoint(addr, kind)
		if err != nil {
			return err
		}
		fmt.Printf("breakpoint %d set at %#x\n", id, addr)
		return nil
	},
}

var breakRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a breakpoint by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid breakpoint id %q: %w", args[0], err)
		}
		return client.RemoveBreakpoint(uint32(id))
	},
}

var breakEnableCmd = &cobra.Command{
	Use:   "enable <id> <true|false>",
	Short: "Enable or disable a breakpoint by ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid breakpoint id %q: %w", args[0], err)
		}
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid enabled value %q: %w", args[1], err)
		}
		return client.EnableBreakpoint(uint32(id), enabled)
	},
}

var breakListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tracked breakpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		bps, err := client.CachedBreakpoints()
		if err != nil {
			return err
		}
		for _, bp := range bps {
			state := "enabled"
			if bp.State == breakpoint.Disabled {
				state = "disabled"
			}
			fmt.Printf("%d  %#x  %s  %s  hits=%d\n", bp.ID, bp.Address, bp.Kind, state, bp.HitCount)
		}
		return nil
	},
}

func init() {
	breakSetCmd.Flags().StringVar(&breakKind, "kind", "software", "software or hardware")
	breakCmd.AddCommand(breakSetCmd, breakRmCmd, breakEnableCmd, breakListCmd)
}
