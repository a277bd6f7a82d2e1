// Concurrent correctness stress driver for the epoch-versioned skiplist.
//
// Runs the scenario suite (concurrent writes, inserts, updates, deletes,
// bulkloads, snapshot reads and scans, and structural modification storms)
// against the in-tree index, prints a PASS/FAIL/SKIP line per scenario, and
// optionally writes a reproducibility bundle with the run configuration and
// the compressed operation history.
//
// Usage: go run ./cmd/indexstress [flags]
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/aalhour/indexharness/internal/compression"
	"github.com/aalhour/indexharness/internal/dataset"
	"github.com/aalhour/indexharness/internal/epoch"
	"github.com/aalhour/indexharness/internal/harness"
	"github.com/aalhour/indexharness/internal/logging"
	"github.com/aalhour/indexharness/internal/report"
	"github.com/aalhour/indexharness/internal/verindex"
)

var (
	threads   = pflag.Int("threads", 8, "concurrent workers (a multiple of four enables the SMO scenario)")
	execs     = pflag.Int("execs", 1000, "operations per worker per phase")
	seed      = pflag.Uint64("seed", 0, "shuffle seed (0 for time-based)")
	scenarios = pflag.String("scenarios", "", "comma-separated substrings; run only matching scenarios")
	reportDir = pflag.String("report-dir", "", "directory for the run report bundle (empty to skip)")
	codecName = pflag.String("compression", "snappy", "history codec: none, snappy, zlib, lz4, zstd")
	dsName    = pflag.String("dataset", "u64", "key/payload universe: u64, i64, var")
	repeat    = pflag.Int("repeat", 1, "suite repetitions")
	verbose   = pflag.BoolP("verbose", "v", false, "verbose logging")
)

var errScenarioFailed = errors.New("scenario failures")

func main() {
	pflag.Parse()
	if err := run(); err != nil {
		if !errors.Is(err, errScenarioFailed) {
			fmt.Fprintln(os.Stderr, "indexstress:", err)
		}
		os.Exit(1)
	}
}

func run() error {
	codec, err := compression.TypeFromName(*codecName)
	if err != nil {
		return err
	}
	kind, err := dataset.KindFromName(*dsName)
	if err != nil {
		return err
	}
	if *repeat < 1 {
		return fmt.Errorf("repeat must be at least 1, got %d", *repeat)
	}

	runSeed := *seed
	if runSeed == 0 {
		runSeed = uint64(time.Now().UnixNano())
	}

	level := logging.LevelWarn
	if *verbose {
		level = logging.LevelDebug
	}
	log := logging.NewDefaultLogger(level)

	var hist *report.History
	if *reportDir != "" {
		hist = report.NewHistory()
	}

	h := harness.New(newSkiplist, harness.Config{
		ThreadNum: *threads,
		ExecNum:   *execs,
		Seed:      runSeed,
		KeyKind:   kind,
		PayKind:   kind,
		Logger:    log,
		History:   hist,
	})

	filters := splitFilters(*scenarios)
	info := report.NewRunInfo(runSeed, *threads, *execs, kind.String())
	fmt.Printf("indexstress: threads=%d execs=%d seed=%d dataset=%s\n", *threads, *execs, runSeed, kind)

	start := time.Now()
	var passed, failed, skipped int
	for round := 0; round < *repeat; round++ {
		if *repeat > 1 {
			fmt.Printf("--- round %d/%d ---\n", round+1, *repeat)
		}
		for _, sc := range h.Scenarios() {
			if !matches(sc.Name, filters) {
				continue
			}
			res := sc.Run()
			info.AddScenario(res.Name, res.Status.String(), res.SkipReason, res.Violations, res.Elapsed)
			switch res.Status {
			case harness.Passed:
				passed++
				fmt.Printf("PASS %s (%s)\n", res.Name, res.Elapsed.Round(time.Millisecond))
			case harness.Skipped:
				skipped++
				fmt.Printf("SKIP %s: %s\n", res.Name, res.SkipReason)
			case harness.Failed:
				failed++
				fmt.Printf("FAIL %s: %d violations\n", res.Name, len(res.Violations))
				for _, v := range res.Violations {
					fmt.Printf("     %s\n", v)
				}
			}
		}
	}
	info.Elapsed = time.Since(start).String()

	fmt.Printf("\n%d passed, %d failed, %d skipped in %s\n",
		passed, failed, skipped, time.Since(start).Round(time.Millisecond))
	if passed+failed+skipped == 0 {
		return fmt.Errorf("no scenarios matched filter %q", *scenarios)
	}

	if *reportDir != "" {
		bundle := &report.Bundle{Info: info, History: hist, Codec: codec}
		if err := bundle.Write(*reportDir); err != nil {
			return fmt.Errorf("write report bundle: %w", err)
		}
		log.Infof(logging.NSReport+"bundle written to %s (run %s)", *reportDir, info.RunID)
	}

	if failed > 0 {
		return errScenarioFailed
	}
	return nil
}

func newSkiplist(cmp func(a, b []byte) int, mgr *epoch.Manager) any {
	return verindex.New(cmp, mgr)
}

func splitFilters(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func matches(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}
