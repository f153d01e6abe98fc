// Command poolbench drives a tcpool.Pool through a concurrent hammer
// across many goroutines, for manual soak testing. It runs that one
// load pattern only. It is not part of the library's contract - tcpool
// is a package, not a service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudfly/tcpool"
)

func main() {
	var (
		workers   = flag.Int("workers", 8, "number of concurrent goroutines hammering the pool")
		rounds    = flag.Int("rounds", 100000, "allocate/deallocate rounds per worker")
		blockSize = flag.Int("size", 64, "request size in bytes (<= 262144 exercises the tiered path)")
		threshold = flag.Int("threshold", 64, "thread-cache drain threshold per size class")
		verbose   = flag.Bool("verbose", false, "enable debug-level logging")
	)
	flag.Parse()

	log := buildLogger(*verbose)
	defer log.Sync()

	pool := tcpool.New(
		tcpool.WithThreshold(*threshold),
		tcpool.WithLogger(log),
	)

	log.Info("poolbench starting",
		zap.Int("workers", *workers), zap.Int("rounds", *rounds),
		zap.Int("size", *blockSize), zap.Int("threshold", *threshold))

	start := time.Now()
	if err := hammer(pool, *workers, *rounds, *blockSize); err != nil {
		fmt.Fprintln(os.Stderr, "poolbench: ", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	total := int64(*workers) * int64(*rounds)
	log.Info("poolbench finished",
		zap.Duration("elapsed", elapsed),
		zap.Int64("total_ops", total),
		zap.Float64("ops_per_sec", float64(total)/elapsed.Seconds()))
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		log = zap.NewNop()
	}
	return log
}

// hammer runs the concurrent-hammer load pattern: each worker
// allocates and immediately frees in most rounds, but deliberately
// holds onto every fourth block until the following round before
// freeing it, so the thread cache's drain path sees real churn
// instead of a trivial push-then-pop loop.
func hammer(pool *tcpool.Pool, workers, rounds, size int) error {
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			var held []unsafe.Pointer
			for i := 0; i < rounds; i++ {
				ptr := pool.Allocate(size)
				if ptr == nil {
					return fmt.Errorf("allocate failed at round %d", i)
				}

				if i%4 == 0 {
					held = append(held, ptr)
					continue
				}
				pool.Deallocate(ptr, size)

				if len(held) > 0 {
					last := held[len(held)-1]
					held = held[:len(held)-1]
					pool.Deallocate(last, size)
				}
			}
			for _, ptr := range held {
				pool.Deallocate(ptr, size)
			}
			return nil
		})
	}
	return g.Wait()
}
