package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/lintang-b-s/drivesim/pkg/concurrent"
	log "github.com/lintang-b-s/drivesim/pkg/logger"
	"github.com/lintang-b-s/drivesim/pkg/navigation"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	seeds   = flag.Int("seeds", 64, "number of independent availability streams")
	ticks   = flag.Int("ticks", 100000, "ticks simulated per stream")
	chance  = flag.Int("chance", 5, "outage chance, a check fails with probability 1/chance")
	workers = flag.Int("workers", 8, "number of workers")
)

type runStats struct {
	seed      uint64
	down      int
	runs      int
	longest   int
	runLength map[int]int
}

func simulate(seed uint64) runStats {
	a := navigation.NewAvailability(rand.New(rand.NewSource(seed)), *chance)
	stats := runStats{seed: seed, runLength: make(map[int]int)}

	run := 0
	flush := func() {
		if run == 0 {
			return
		}
		stats.runs++
		stats.runLength[run]++
		stats.longest = max(stats.longest, run)
		run = 0
	}
	for i := 0; i < *ticks; i++ {
		if a.Step() {
			flush()
			continue
		}
		stats.down++
		run++
	}
	flush()
	return stats
}

func main() {
	flag.Parse()
	logger, err := log.New()
	if err != nil {
		panic(err)
	}

	jobs := make([]uint64, *seeds)
	for i := range jobs {
		jobs[i] = uint64(i + 1)
	}
	results := concurrent.Run(*workers, jobs, simulate)

	var (
		down, runs, longest int
		hist                = make(map[int]int)
	)
	for _, r := range results {
		down += r.down
		runs += r.runs
		longest = max(longest, r.longest)
		for l, c := range r.runLength {
			hist[l] += c
		}
	}
	if runs == 0 {
		logger.Warn("navigation never went down", zap.Int("ticks", *ticks), zap.Int("chance", *chance))
		return
	}

	total := *seeds * *ticks
	mean := float64(down) / float64(runs)
	p := 1.0 / float64(*chance)
	logger.Info("outage model",
		zap.Int("streams", *seeds),
		zap.Int("ticks", total),
		zap.Float64("unavailable_ratio", float64(down)/float64(total)),
		zap.Float64("mean_outage_ticks", mean),
		zap.Float64("expected_mean_outage_ticks", 1/p),
		zap.Int("longest_outage_ticks", longest),
	)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "length\tobserved\texpected\t")
	for l := 1; l <= 10; l++ {
		observed := float64(hist[l]) / float64(runs)
		expected := p * math.Pow(1-p, float64(l-1))
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t\n", l, observed, expected)
	}
	w.Flush()
}
