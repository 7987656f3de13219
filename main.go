package main

import (
	"log"
	"os"
	"runtime/pprof"

	"github.com/lumipallolabs/treewatch/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Enable CPU profiling if CPUPROFILE env var is set
	if cpuProfile := os.Getenv("CPUPROFILE"); cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", cpuProfile)
	}

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
