package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	scanType      string
	scanMode      string
	scanValue     string
	scanValue2    string
	scanEndian    string
	scanAlignment int
	scanHex       bool
	scanTimeout   time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "First/next/undo/abort a memory scan, and page through results",
}

var scanFirstCmd = &cobra.Command{
	Use:   "first",
	Short: "Start a new scan generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildScanConfig(scanType, scanMode, scanValue, scanValue2, scanEndian, scanAlignment, scanHex)
		if err != nil {
			return err
		}
		if err := client.FirstScan(cfg); err != nil {
			return err
		}
		return waitAndReport()
	},
}

var scanNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Refine the current scan generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildScanConfig(scanType, scanMode, scanValue, scanValue2, scanEndian, scanAlignment, scanHex)
		if err != nil {
			return err
		}
		if err := client.NextScan(cfg); err != nil {
			return err
		}
		return waitAndReport()
	},
}

var scanUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert to the previous scan generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.UndoScan()
	},
}

var scanAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abort an in-progress scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.AbortScan()
	},
}

var (
	scanResultsStart uint64
	scanResultsCount uint64
)

var scanResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print a page of the current scan generation's results",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := client.ScanResultsRange(scanResultsStart, scanResultsCount)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%#016x  prev=% x  first=% x\n", r.Address, r.PreviousValue, r.FirstValue)
		}
		return nil
	},
}

func waitAndReport() error {
	if err := client.WaitForScanCompletion(scanTimeout); err != nil {
		return fmt.Errorf("wait for scan completion: %w", err)
	}
	fmt.Println("scan complete")
	return nil
}

func init() {
	for _, c := range []*cobra.Command{scanFirstCmd, scanNextCmd} {
		c.Flags().StringVar(&scanType, "type", "i32", "value type: i8/u8/i16/u16/i32/u32/i64/u64/f32/f64/str-ascii/str-utf8/str-utf16/str-utf32")
		c.Flags().StringVar(&scanMode, "mode", "exact", "exact/gt/lt/between/unknown/changed/unchanged/increased/decreased/increasedby/decreasedby/contains/beginswith/endswith")
		c.Flags().StringVar(&scanValue, "value", "", "scan value")
		c.Flags().StringVar(&scanValue2, "value2", "", "second scan value, for between/*by modes")
		c.Flags().StringVar(&scanEndian, "endian", "little", "little or big")
		c.Flags().IntVar(&scanAlignment, "alignment", 1, "address alignment, power of two")
		c.Flags().BoolVar(&scanHex, "hex", false, "display results in hexadecimal")
		c.Flags().DurationVar(&scanTimeout, "timeout", 30*time.Second, "how long to wait for the scan to finish")
	}

	scanResultsCmd.Flags().Uint64Var(&scanResultsStart, "start", 0, "first result index")
	scanResultsCmd.Flags().Uint64Var(&scanResultsCount, "count", 100, "number of results to print")

	scanCmd.AddCommand(scanFirstCmd, scanNextCmd, scanUndoCmd, scanAbortCmd, scanResultsCmd)
}
