package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/PHTNCx64/vertex/plugin"
	vrpc "github.com/PHTNCx64/vertex/facade/rpc"
)

// consoleCmd is an interactive REPL built on readline. Commands are
// short verbs - "scan first i32 exact 34", "break set 0x5000", "step
// into", "continue" - so an operator can drive a whole session without
// relaunching the process.
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start an interactive console against a vertex server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := vrpc.Dial(netFlag, addrFlag)
		if err != nil {
			return fmt.Errorf("dial %s %s: %w", netFlag, addrFlag, err)
		}
		defer c.Close()
		return runConsole(c)
	},
}

func runConsole(c *vrpc.Client) error {
	rl, err := readline.New("vertex> ")
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := dispatchConsoleLine(c, fields); err != nil {
			if err == io.EOF {
				return nil
			}
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func dispatchConsoleLine(c *vrpc.Client, fields []string) error {
	switch fields[0] {
	case "help":
		printConsoleHelp()
		return nil
	case "exit", "quit":
		return io.EOF
	case "attach":
		if len(fields) != 2 {
			return fmt.Errorf("usage: attach <pid>")
		}
		pid, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return err
		}
		return c.Attach(uint32(pid))
	case "detach":
		return c.Detach()
	case "continue":
		pass := false
		if len(fields) == 2 {
			pass, _ = strconv.ParseBool(fields[1])
		}
		return c.Continue(pass)
	case "pause":
		return c.Pause()
	case "step":
		return consoleStep(c, fields[1:])
	case "scan":
		return consoleScan(c, fields[1:])
	case "break":
		return consoleBreak(c, fields[1:])
	case "watch":
		return consoleWatch(c, fields[1:])
	case "process":
		return consoleProcess(c, fields[1:])
	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func consoleStep(c *vrpc.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: step into|over|out|to [thread-or-address]")
	}
	switch args[0] {
	case "into", "over", "out":
		var thread uint64
		if len(args) == 2 {
			var err error
			thread, err = strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return err
			}
		}
		switch args[0] {
		case "into":
			return c.StepInto(uint32(thread))
		case "over":
			return c.StepOver(uint32(thread))
		default:
			return c.StepOut(uint32(thread))
		}
	case "to":
		if len(args) != 2 {
			return fmt.Errorf("usage: step to <address>")
		}
		addr, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return err
		}
		return c.RunToAddress(addr)
	default:
		return fmt.Errorf("unknown step kind %q", args[0])
	}
}

// consoleScan accepts: scan first|next <type> <mode> <value> [value2]
// scan undo / scan abort / scan results [start] [count]
func consoleScan(c *vrpc.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: scan first|next|undo|abort|results ...")
	}
	switch args[0] {
	case "undo":
		return c.UndoScan()
	case "abort":
		return c.AbortScan()
	case "results":
		start, count := uint64(0), uint64(100)
		if len(args) > 1 {
			v, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return err
			}
			start = v
		}
		if len(args) > 2 {
			v, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return err
			}
			count = v
		}
		results, err := c.ScanResultsRange(start, count)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%#016x  prev=% x  first=% x\n", r.Address, r.PreviousValue, r.FirstValue)
		}
		return nil
	case "first", "next":
		if len(args) < 3 {
			return fmt.Errorf("usage: scan %s <type> <mode> [value] [value2]", args[0])
		}
		value, value2 := "", ""
		if len(args) > 3 {
			value = args[3]
		}
		if len(args) > 4 {
			value2 = args[4]
		}
		cfg, err := buildScanConfig(args[1], args[2], value, value2, "little", 1, false)
		if err != nil {
			return err
		}
		if args[0] == "first" {
			return c.FirstScan(cfg)
		}
		return c.NextScan(cfg)
	default:
		return fmt.Errorf("unknown scan subcommand %q", args[0])
	}
}

func consoleBreak(c *vrpc.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break set|rm|enable|list ...")
	}
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: break set <address> [software|hardware]")
		}
		addr, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return err
		}
		kind := plugin.Software
		if len(args) > 2 && strings.EqualFold(args[2], "hardware") {
			kind = plugin.Hardware
		}
		id, err := c.SetBreakpoint(addr, kind)
		if err != nil {
			return err
		}
		fmt.Printf("breakpoint %d set at %#x\n", id, addr)
		return nil
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: break rm <id>")
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return err
		}
		return c.RemoveBreakpoint(uint32(id))
	case "enable":
		if len(args) != 3 {
			return fmt.Errorf("usage: break enable <id> <true|false>")
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return err
		}
		enabled, err := strconv.ParseBool(args[2])
		if err != nil {
			return err
		}
		return c.EnableBreakpoint(uint32(id), enabled)
	case "list":
		bps, err := c.CachedBreakpoints()
		if err != nil {
			return err
		}
		for _, bp := range bps {
			fmt.Printf("%d  %#x  %s  hits=%d\n", bp.ID, bp.Address, bp.Kind, bp.HitCount)
		}
		return nil
	default:
		return fmt.Errorf("unknown break subcommand %q", args[0])
	}
}

func consoleWatch(c *vrpc.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch set|rm|enable|list ...")
	}
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: watch set <address> [size] [read|write|readwrite|execute]")
		}
		addr, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return err
		}
		size := uint64(4)
		if len(args) > 2 {
			size, err = strconv.ParseUint(args[2], 10, 8)
			if err != nil {
				return err
			}
		}
		access := plugin.WatchWrite
		if len(args) > 3 {
			access, err = parseWatchAccess(args[3])
			if err != nil {
				return err
			}
		}
		id, err := c.SetWatchpoint(plugin.WatchpointSpec{Address: addr, Size: uint8(size), Access: access})
		if err != nil {
			return err
		}
		fmt.Printf("watchpoint %d set at %#x\n", id, addr)
		return nil
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: watch rm <id>")
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return err
		}
		return c.RemoveWatchpoint(uint32(id))
	case "enable":
		if len(args) != 3 {
			return fmt.Errorf("usage: watch enable <id> <true|false>")
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return err
		}
		enabled, err := strconv.ParseBool(args[2])
		if err != nil {
			return err
		}
		return c.EnableWatchpoint(uint32(id), enabled)
	case "list":
		wps, err := c.CachedWatchpoints()
		if err != nil {
			return err
		}
		for _, wp := range wps {
			fmt.Printf("%d  %#x  size=%d  hits=%d\n", wp.ID, wp.Address, wp.Size, wp.HitCount)
		}
		return nil
	default:
		return fmt.Errorf("unknown watch subcommand %q", args[0])
	}
}

func consoleProcess(c *vrpc.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: process refresh|list")
	}
	switch args[0] {
	case "refresh":
		return c.RefreshProcessList()
	case "list":
		procs, err := c.CachedProcessList()
		if err != nil {
			return err
		}
		for _, p := range procs {
			fmt.Printf("%d  %s\n", p.PID, p.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown process subcommand %q", args[0])
	}
}

func printConsoleHelp() {
	fmt.Println(`commands:
  attach <pid>
  detach
  continue [pass-exception:true|false]
  pause
  step into|over|out [thread]
  step to <address>
  scan first|next <type> <mode> [value] [value2]
  scan undo
  scan abort
  scan results [start] [count]
  break set <address> [software|hardware]
  break rm <id>
  break enable <id> <true|false>
  break list
  watch set <address> [size] [read|write|readwrite|execute]
  watch rm <id>
  watch enable <id> <true|false>
  watch list
  process refresh
  process list
  help
  exit`)
}
