// The vertex command is a CLI front end that exercises facade/rpc end to
// end: attach, scan, breakpoint, watchpoint, and an interactive console,
// all driven over the same net/rpc transport a GUI front end would use.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
