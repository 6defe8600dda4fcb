package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sprintboard/cmd/mockgen/engine"
	"sprintboard/internal/cache"

	flag "github.com/spf13/pflag"
)

func main() {
	scenario := flag.StringP("scenario", "s", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Story point distribution: uniform, weibull")
	outDir := flag.StringP("out", "o", "./.cache", "Cache directory to write partitions into")
	settings := flag.String("settings", "", "Optional path of a settings file to write with the generated roster")
	count := flag.IntP("count", "n", 60, "Number of issues per month")
	developers := flag.Int("developers", 8, "Number of roster developers")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	switch *scenario {
	case "mild", "chaos", "drift":
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *scenario)
		os.Exit(2)
	}

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Count:        *count,
		Developers:   *developers,
		Now:          time.Now(),
		Seed:         *seed,
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, %d issues/month) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Count, *outDir)

	ds := engine.Generate(cfg)
	store := cache.NewStore(filepath.Clean(*outDir))
	if err := engine.Save(store, *settings, ds, cfg.Now); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d partitions written.\n", len(ds.Partitions))
}
