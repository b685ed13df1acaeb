//go:build ignore
// +build ignore

// This script reads and displays the contents of an Excel health report for verification.
// Run with: go run scripts/read_excel.go <report.xlsx>
package main

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run scripts/read_excel.go <report.xlsx>")
		os.Exit(1)
	}

	f, err := excelize.OpenFile(os.Args[1])
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Println("📊 Sheets:", f.GetSheetList())
	fmt.Println()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  %s (%d rows)\n", sheet, len(rows))
		fmt.Println("═══════════════════════════════════════")
		for i, row := range rows {
			if i >= 20 {
				fmt.Println("  ...")
				break
			}
			if len(row) == 0 {
				continue
			}
			fmt.Print(" ")
			for _, cell := range row {
				fmt.Printf(" %-18s", cell)
			}
			fmt.Println()
		}
		fmt.Println()
	}

	fmt.Println("✅ Excel report read")
}
