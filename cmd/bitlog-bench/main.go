// Command bitlog-bench runs ad hoc throughput and integrity scenarios
// against the engine, operating on the log in the current working
// directory; a log already present there is replayed and appended to, not
// replaced. It is a development tool, not part of the public API.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/bitlogdb/bitlog/internal/config"
	"github.com/bitlogdb/bitlog/internal/engine"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to determine working directory: %v", err)
	}

	switch os.Args[1] {
	case "100k-write":
		run100kWrite(dir, cfg)
	case "overlapping":
		runOverlappingKey(dir, cfg)
	case "integrity":
		runIntegrity(dir, cfg)
	default:
		fmt.Printf("Unknown scenario: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: bitlog-bench <scenario>")
	fmt.Println("\nAvailable scenarios:")
	fmt.Println("  100k-write  - write 100,000 unique keys and measure throughput")
	fmt.Println("  overlapping - write one key twice and confirm only the latest value survives")
	fmt.Println("  integrity   - write 100k keys, then randomly read 1,000 back to verify correctness")
}

func run100kWrite(dir string, cfg *config.Config) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Scenario: 100k-write")
	fmt.Println(strings.Repeat("=", 60))

	eng, err := engine.Open(dir, cfg)
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}
	defer eng.Close()

	const totalKeys = 100000
	start := time.Now()
	errs := 0

	fmt.Printf("Writing %d keys...\n", totalKeys)
	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)

		if err := eng.Set(key, value); err != nil {
			errs++
			if errs <= 10 {
				fmt.Printf("ERROR: failed to set %s: %v\n", key, err)
			}
		}

		if (i+1)%10000 == 0 {
			elapsed := time.Since(start)
			rate := float64(i+1) / elapsed.Seconds()
			fmt.Printf("progress: %d/%d keys written (%.2f keys/sec)\n", i+1, totalKeys, rate)
		}
	}

	elapsed := time.Since(start)
	rate := float64(totalKeys) / elapsed.Seconds()

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("total time: %v\n", elapsed)
	fmt.Printf("write rate: %.2f keys/second\n", rate)
	fmt.Printf("errors: %d\n", errs)

	if errs > 0 {
		fmt.Printf("\nFAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}

	if size, err := eng.LogSize(); err != nil {
		fmt.Printf("warning: could not stat log file: %v\n", err)
	} else {
		fmt.Printf("log file size: %d bytes (%.2f MB)\n", size, float64(size)/1024/1024)
	}

	keyCount := eng.KeyCount()
	fmt.Printf("keys indexed: %d\n", keyCount)
	if keyCount != totalKeys {
		fmt.Printf("WARNING: index has %d keys, expected %d\n", keyCount, totalKeys)
	}

	fmt.Println("\nPASSED: all keys written successfully")
}

func runOverlappingKey(dir string, cfg *config.Config) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Scenario: overlapping")
	fmt.Println(strings.Repeat("=", 60))

	eng, err := engine.Open(dir, cfg)
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}
	defer eng.Close()

	key, valueA, valueB := "key_1", "value_A", "value_B"

	initialSize, _ := eng.LogSize()

	fmt.Printf("step 1: set %s = %q\n", key, valueA)
	if err := eng.Set(key, valueA); err != nil {
		log.Fatalf("failed to set %s to %s: %v", key, valueA, err)
	}
	firstSize, _ := eng.LogSize()
	fmt.Printf("  log size after first write: %d bytes\n", firstSize)

	fmt.Printf("step 2: set %s = %q (overwrite)\n", key, valueB)
	if err := eng.Set(key, valueB); err != nil {
		log.Fatalf("failed to set %s to %s: %v", key, valueB, err)
	}
	secondSize, _ := eng.LogSize()
	fmt.Printf("  log size after second write: %d bytes\n", secondSize)
	fmt.Printf("  log grew by %d bytes (should hold both versions)\n", secondSize-initialSize)

	fmt.Printf("step 3: get %s\n", key)
	value, ok, err := eng.Get(key)
	if err != nil {
		log.Fatalf("failed to get %s: %v", key, err)
	}
	fmt.Printf("  retrieved: %q\n", value)

	if !ok || value != valueB {
		fmt.Printf("\nFAILED: expected %q, got %q (found=%v)\n", valueB, value, ok)
		os.Exit(1)
	}

	if n := eng.KeyCount(); n != 1 {
		fmt.Printf("WARNING: index has %d keys, expected 1\n", n)
	} else {
		fmt.Println("  index contains 1 key (correct: only the latest pointer survives)")
	}

	fmt.Println("\nPASSED: latest value correctly returned")
}

func runIntegrity(dir string, cfg *config.Config) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Scenario: integrity")
	fmt.Println(strings.Repeat("=", 60))

	eng, err := engine.Open(dir, cfg)
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}
	defer eng.Close()

	const totalKeys = 100000
	fmt.Printf("step 1: writing %d keys...\n", totalKeys)
	start := time.Now()

	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)
		if err := eng.Set(key, value); err != nil {
			log.Fatalf("failed to set %s: %v", key, err)
		}
	}
	fmt.Printf("  write completed in %v\n", time.Since(start))

	fmt.Println("\nstep 2: randomly reading 1,000 keys back...")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	readStart := time.Now()
	errs := 0

	for i := 0; i < 1000; i++ {
		idx := rng.Intn(totalKeys)
		key := fmt.Sprintf("key_%d", idx)
		want := fmt.Sprintf("value_%d", idx)

		got, ok, err := eng.Get(key)
		if err != nil {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: failed to get %s: %v\n", key, err)
			}
			continue
		}
		if !ok || got != want {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: mismatch for %s: want %q, got %q (found=%v)\n", key, want, got, ok)
			}
		}
	}

	readElapsed := time.Since(readStart)
	fmt.Printf("\n  read completed in %v (%.2f keys/sec)\n", readElapsed, 1000.0/readElapsed.Seconds())

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("errors: %d\n", errs)
	if errs > 0 {
		fmt.Printf("\nFAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}

	fmt.Println("\nPASSED: all 1,000 random reads returned correct values")
}
