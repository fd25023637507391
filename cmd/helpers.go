package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cburschka/lyx-sub006/internal/converter"
	"github.com/cburschka/lyx-sub006/internal/format"
)

// minColWidth is the minimum column width for format matrix display.
const minColWidth = 8

// runMatrix prints a FROM \ TO reachability matrix across every format in
// formats, backing the `formats --matrix` flag.
func runMatrix(formats *format.Registry, convs *converter.Registry) error {
	names := make([]string, 0, formats.Len())
	for _, f := range formats.Sorted() {
		names = append(names, f.Name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Println("no formats configured")
		return nil
	}

	displayMatrix(names, convs.IsReachable)
	return nil
}

// displayMatrix prints a FROM \ TO reachability matrix over names, where
// reachable(from, to) decides the cell's checkmark.
func displayMatrix(names []string, reachable func(from, to string) bool) {
	colWidth := minColWidth
	for _, n := range names {
		if len(n) > colWidth {
			colWidth = len(n)
		}
	}

	printSeparator := func() {
		fmt.Print(strings.Repeat("─", colWidth))
		fmt.Print("─┼")
		for i := range names {
			fmt.Print(strings.Repeat("─", colWidth))
			if i < len(names)-1 {
				fmt.Print("─┼")
			} else {
				fmt.Print("─")
			}
		}
		fmt.Println()
	}

	fmt.Printf("%-*s │", colWidth, "FROM\\TO")
	for i, to := range names {
		fmt.Printf(" %-*s", colWidth-1, to)
		if i < len(names)-1 {
			fmt.Print(" │")
		} else {
			fmt.Print(" ")
		}
	}
	fmt.Println()
	printSeparator()

	for rowIdx, from := range names {
		fmt.Printf("%-*s │", colWidth, from)
		for colIdx, to := range names {
			symbol := " "
			if from != to && reachable(from, to) {
				symbol = "x"
			}
			fmt.Printf(" %-*s", colWidth-1, symbol)
			if colIdx < len(names)-1 {
				fmt.Print(" │")
			} else {
				fmt.Print(" ")
			}
		}
		fmt.Println()
		if rowIdx < len(names)-1 {
			printSeparator()
		}
	}
}
