package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var attachPID uint32

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach the server's debug loop to a process by PID",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Attach(attachPID); err != nil {
			return err
		}
		fmt.Printf("attached to pid %d\n", attachPID)
		return nil
	},
}

var detachCmd = &cobra.Command{
	Use:   "detach",
	Short: "Detach the server's debug loop from the current process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.Detach()
	},
}

var continuePassException bool

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Resume execution of the attached process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.Continue(continuePassException)
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause execution of the attached process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.Pause()
	},
}

var stepMode string
var stepThread uint32

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Step the attached process (into, over, out) or run to an address",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch stepMode {
		case "into":
			return client.StepInto(stepThread)
		case "over":
			return client.StepOver(stepThread)
		case "out":
			return client.StepOut(stepThread)
		case "to":
			if len(args) != 1 {
				return fmt.Errorf("step --mode=to requires exactly one address argument")
			}
			addr, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[0], err)
			}
			return client.RunToAddress(addr)
		default:
			return fmt.Errorf("unknown --mode %q (want into, over, out, or to)", stepMode)
		}
	},
}

func init() {
	attachCmd.Flags().Uint32Var(&attachPID, "pid", 0, "process ID to attach to")
	attachCmd.MarkFlagRequired("pid")

	continueCmd.Flags().BoolVar(&continuePassException, "pass-exception", false, "pass the pending exception back to the target instead of swallowing it")

	stepCmd.Flags().StringVar(&stepMode, "mode", "into", "into, over, out, or to (with an address argument)")
	stepCmd.Flags().Uint32Var(&stepThread, "thread", 0, "thread ID to step")
}
