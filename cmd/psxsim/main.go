// Package main provides the entry point for PSXSim.
// PSXSim is a cycle-level PlayStation CPU and DMA simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/psxsim/bus"
	"github.com/sarchlab/psxsim/dma"
	"github.com/sarchlab/psxsim/emu"
	"github.com/sarchlab/psxsim/exec"
	"github.com/sarchlab/psxsim/gpu"
	"github.com/sarchlab/psxsim/irq"
	"github.com/sarchlab/psxsim/timing/cache"
	"github.com/sarchlab/psxsim/timing/counter"
)

var (
	cycles  = flag.Int64("cycles", 100_000_000, "Cycle budget to simulate")
	icache  = flag.Bool("icache", false, "Enable the instruction cache timing model")
	verbose = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: psxsim [options] <bios.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	biosPath := flag.Arg(0)

	bios, err := os.ReadFile(biosPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading BIOS: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s (%d bytes)\n", biosPath, len(bios))
	}

	os.Exit(run(bios))
}

// run wires the machine together and steps it until the cycle budget is
// spent or a device fault stops the simulation.
func run(bios []byte) int {
	ctr := counter.New()
	irqs := irq.NewState()
	g := gpu.New()
	engine := dma.New(irqs)

	b, err := bus.New(bios, g, irqs, ctr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var opts []emu.CPUOption
	var ic *cache.ICache
	if *icache {
		ic = cache.New(cache.DefaultIConfig())
		opts = append(opts, emu.WithICache(ic))
	}

	cpu := emu.NewCPU(b, engine, irqs, ctr, exec.New(), opts...)

	var steps int64
	for ctr.Cycles() < *cycles {
		if res := cpu.Step(); res.Err != nil {
			fmt.Fprintf(os.Stderr, "Simulation stopped at pc 0x%08x: %v\n",
				cpu.CurrentPC(), res.Err)
			report(ctr, steps, g, ic)
			return 1
		}
		steps++
	}

	report(ctr, steps, g, ic)
	return 0
}

func report(ctr *counter.Counter, steps int64, g *gpu.GPU, ic *cache.ICache) {
	if !*verbose {
		return
	}

	fmt.Printf("\n")
	fmt.Printf("Total Cycles: %d\n", ctr.Cycles())
	fmt.Printf("Steps: %d\n", steps)
	fmt.Printf("GP0 words received: %d\n", g.WordsReceived())

	if ic != nil {
		stats := ic.Stats()
		accesses := stats.Accesses
		if accesses == 0 {
			accesses = 1
		}
		fmt.Printf("\n")
		fmt.Printf("Instruction cache:\n")
		fmt.Printf("  Accesses: %d\n", stats.Accesses)
		fmt.Printf("  Hits:     %d (%5.1f%%)\n",
			stats.Hits, 100.0*float64(stats.Hits)/float64(accesses))
		fmt.Printf("  Misses:   %d\n", stats.Misses)
	}
}
