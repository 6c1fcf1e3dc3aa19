// Package main provides the entry point for PSXSim.
// PSXSim is a cycle-level PlayStation CPU and DMA simulator.
//
// For the full CLI, use: go run ./cmd/psxsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("PSXSim - PlayStation CPU and DMA Simulator")
	fmt.Println("")
	fmt.Println("Usage: psxsim [options] <bios.bin>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -cycles    Cycle budget to simulate")
	fmt.Println("  -icache    Enable the instruction cache timing model")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/psxsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/psxsim' instead.")
	}
}
