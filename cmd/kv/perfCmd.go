package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sdcs/cmd/util"
	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/rpc/common"
	"github.com/google/uuid"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for sdcs clusters",
		Long:    "Runs parallel benchmarks against a node. Keys are spread over the whole cluster, so most requests are forwarded by the node.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test-" + uuid.NewString()[:8] // concurrent runs use distinct keys
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// benchmark describes one test: prepare runs once before the timer starts,
// op is run in parallel for every iteration
type benchmark struct {
	name    string
	prepare func(keys []string)
	op      func(key string, i int) error
}

// perfResult is the outcome of a single benchmark
type perfResult struct {
	bench testing.BenchmarkResult
	timer metrics.Timer
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for sdcs clusters")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	small := envelope.String("test")
	large := envelope.String(strings.Repeat("x", perfLargeValueSizeKB*1024))
	fill := func(keys []string) {
		for _, k := range keys {
			if err := rpcStore.Set(k, small); err != nil {
				log.Printf("error setting key %s: %v\n", k, err)
			}
		}
	}

	benchmarks := []benchmark{
		{
			name: "set",
			op: func(key string, _ int) error {
				return rpcStore.Set(key, small)
			},
		},
		{
			name: "set-large",
			op: func(key string, _ int) error {
				return rpcStore.Set(key, large)
			},
		},
		{
			name: "set-int",
			op: func(key string, i int) error {
				return rpcStore.Set(key, envelope.Int32(int32(i)))
			},
		},
		{
			name:    "get",
			prepare: fill,
			op: func(key string, _ int) error {
				_, _, err := rpcStore.Get(key)
				return err
			},
		},
		{
			name: "get-missing",
			op: func(key string, _ int) error {
				_, _, err := rpcStore.Get(key)
				return err
			},
		},
		{
			name:    "remove",
			prepare: fill,
			op: func(key string, _ int) error {
				_, err := rpcStore.Remove(key)
				return err
			},
		},
		{
			name:    "mixed",
			prepare: fill,
			op: func(key string, i int) error {
				var err error
				switch i % 3 {
				case 0:
					err = rpcStore.Set(key, small)
				case 1:
					_, _, err = rpcStore.Get(key)
				case 2:
					_, err = rpcStore.Remove(key)
				}
				return err
			},
		},
	}

	// Create results map
	results := make(map[string]perfResult)
	for _, bm := range benchmarks {
		if shouldSkip(bm.name) {
			printResult(bm.name, perfResult{})
			continue
		}
		result := runBenchmark(bm)
		results[bm.name] = result
		printResult(bm.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs bm with testing.Benchmark and records the latency of
// every single request in a timer
func runBenchmark(bm benchmark) perfResult {
	keys := getKeys(bm.name)
	timer := metrics.NewTimer()

	bench := testing.Benchmark(func(b *testing.B) {
		if bm.prepare != nil {
			bm.prepare(keys)
		}

		// cleanup
		b.Cleanup(func() {
			for _, k := range keys {
				if _, err := rpcStore.Remove(k); err != nil {
					log.Printf("(%s) - error removing key: %v\n", bm.name, err)
				}
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := bm.op(keys[counter%len(keys)], counter)
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(%s) - error: %v\n", bm.name, err)
				}
				counter++
			}
		})
	})

	return perfResult{bench: bench, timer: timer}
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// getKeys creates the test keys of one benchmark
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.timer == nil || result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	ps := result.timer.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(ps[0]), time.Duration(ps[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Requests", "P50Ns", "P99Ns", "MaxNs",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1)
		opsPerSec := 1.0 / (nsPerOp / 1e9)
		ps := result.timer.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			strconv.FormatInt(result.timer.Count(), 10),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strconv.FormatInt(result.timer.Max(), 10),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
