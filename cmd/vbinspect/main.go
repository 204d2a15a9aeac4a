package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/buffer"
	"github.com/wippyai/vbuf/dataset"
	"github.com/wippyai/vbuf/schema"
	"github.com/wippyai/vbuf/store"
)

func main() {
	var (
		file        = flag.String("scenario", "", "Path to scenario YAML file")
		storeKind   = flag.String("store", "local", "Backing store: local or linear")
		memLimit    = flag.Uint("pages", 0, "Linear store memory limit in 64KiB pages (0 = default)")
		verbose     = flag.Bool("v", false, "Log buffer and store activity")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: vbinspect -scenario <file.yaml> [-store local|linear] [-v]")
		fmt.Fprintln(os.Stderr, "       vbinspect -scenario <file.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			schema.SetLogger(log)
			store.SetLogger(log)
			buffer.SetLogger(log)
			dataset.SetLogger(log)
			defer log.Sync()
		}
	}

	sc, err := loadScenario(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, *storeKind, uint32(*memLimit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	if *interactive {
		if err := runInteractive(*file, sc, st); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(sc, st); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, kind string, pages uint32) (vbuf.BackingStore, func(), error) {
	switch kind {
	case "local":
		s := store.NewLocal()
		return s, func() { s.Close() }, nil
	case "linear":
		s, err := store.NewLinear(ctx, store.LinearOptions{MemoryLimitPages: pages})
		if err != nil {
			return nil, nil, fmt.Errorf("create linear store: %w", err)
		}
		return s, func() { s.Close(ctx) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", kind)
}

func run(sc *scenario, st vbuf.BackingStore) error {
	ds, err := sc.open(st, func(buf int, old, new vbuf.Handle, size int) {
		fmt.Printf("  rebind buffer %d: %d -> %d (%d bytes)\n", buf, old, new, size)
	})
	if err != nil {
		return fmt.Errorf("create data set: %w", err)
	}
	defer ds.Close()

	fmt.Printf("Inputs: %d\n", ds.Schema().Len())
	fmt.Printf("Buffers: %d\n\n", len(ds.Buffers()))
	fmt.Print(describe(ds))

	for i, s := range sc.Steps {
		fmt.Printf("\n[%d] %s\n", i+1, s)
		counts, err := s.apply(ds)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		fmt.Printf("  points: %v\n", counts)
		fmt.Print(describe(ds))
	}

	if stats, ok := statsOf(st); ok {
		fmt.Printf("\nStore: live=%d bytes=%d allocations=%d deallocations=%d writes=%d copies=%d\n",
			stats.Live, stats.Bytes, stats.Allocations, stats.Deallocations, stats.Writes, stats.Copies)
	}
	return nil
}

func statsOf(st vbuf.BackingStore) (store.Stats, bool) {
	s, ok := st.(interface{ Stats() store.Stats })
	if !ok {
		return store.Stats{}, false
	}
	return s.Stats(), true
}
