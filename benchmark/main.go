// Package main provides a performance benchmarking tool for the buildwatch CLI.
// It generates synthetic compilation logs of increasing size, runs the
// log-driven commands against each of them several times, treating the first
// successful run as cold and averaging the rest as warm, and writes the
// timings to CSV for documentation.
//
// Prerequisites:
// - buildwatch binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where synthetic logs are written (defaults to a temp dir)
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// BenchmarkResult holds the timings of one command against one log size.
type BenchmarkResult struct {
	LogSize  string
	Command  string
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir  string
	Timeout  time.Duration
	Runs     int
	Passes   int            // Compilation passes per repository in a synthetic log
	LogSizes map[string]int // Label -> number of repositories
	Order    []string
	Commands [][]string
}

func main() {
	var workDir string
	switch len(os.Args) {
	case 1:
		dir, err := os.MkdirTemp("", "buildwatch-benchmark-*")
		if err != nil {
			fmt.Printf("Failed to create work dir: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		workDir = dir
	case 2:
		workDir = os.Args[1]
	default:
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir: workDir,
		Timeout: 5 * time.Minute,
		Runs:    4,
		Passes:  3,
		LogSizes: map[string]int{
			"small":  1_000,
			"medium": 20_000,
			"large":  200_000,
		},
		Order: []string{"small", "medium", "large"},
		Commands: [][]string{
			{"changed", "--output", "json", "--output-file", os.DevNull},
			{"sample", "--output", "csv", "--output-file", os.DevNull},
			{"export", "--output-file", filepath.Join(workDir, "series.parquet")},
		},
	}

	if _, err := exec.LookPath("buildwatch"); err != nil {
		fmt.Printf("Prerequisites check failed: buildwatch binary not found in PATH\n")
		os.Exit(1)
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results, config)
}

// runBenchmarks generates each log and times every command against it.
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d log sizes, %v timeout, %d runs per command\n",
		len(config.Order), config.Timeout, config.Runs)

	for _, label := range config.Order {
		logPath := filepath.Join(config.WorkDir, "compile-"+label+".log")
		fmt.Printf("Generating %s log (%d repositories x %d passes)\n", label, config.LogSizes[label], config.Passes)
		if err := generateLog(logPath, config.LogSizes[label], config.Passes); err != nil {
			return nil, err
		}

		for _, command := range config.Commands {
			results = append(results, runBenchmarkSuite(config, label, logPath, command))
		}
	}

	return results, nil
}

// generateLog writes a compilation log where about a third of the
// repositories fail and some fluctuate between passes.
func generateLog(path string, repos, passes int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	rng := rand.New(rand.NewPCG(1, 1))
	w := bufio.NewWriter(file)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for pass := range passes {
		for i := range repos {
			total := 1 + rng.IntN(60)
			partial := total
			if rng.IntN(3) == 0 {
				partial = rng.IntN(total)
			}
			ts := start.Add(time.Duration(pass*repos+i) * time.Second)
			if _, err := fmt.Fprintf(w, "%s INFO: %d (%d) out of %d Makefile(s) in owner%d/repo%d compiled (partially), yielding %d binaries\n",
				ts.Format("2006-01-02 15:04:05,000"), partial, partial, total, i%97, i, partial*2); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// runBenchmarkSuite runs one command several times and summarizes the timings.
func runBenchmarkSuite(config BenchmarkConfig, label, logPath string, command []string) BenchmarkResult {
	fmt.Printf("Running %s on %s log\n", command[0], label)

	coldTime, warmTimes := runBenchmark(config, logPath, command)

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}
	warmAvg := "N/A"
	if len(warmTimes) > 0 {
		var sum float64
		for _, t := range warmTimes {
			sum += t
		}
		warmAvg = fmt.Sprintf("%.3fs", sum/float64(len(warmTimes)))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", coldTimeStr, warmAvg)

	return BenchmarkResult{
		LogSize:  label,
		Command:  command[0],
		ColdTime: coldTimeStr,
		WarmTime: warmAvg,
	}
}

// runBenchmark executes a buildwatch command multiple times and returns cold time and warm times.
func runBenchmark(config BenchmarkConfig, logPath string, command []string) (coldTime float64, warmTimes []float64) {
	args := append([]string{command[0], logPath, "--sample-size", "10", "--color", "no"}, command[1:]...)

	var times []float64
	for range config.Runs {
		start := time.Now()

		cmd := exec.Command("buildwatch", args...)
		cmd.Dir = config.WorkDir

		done := make(chan error, 1)
		go func() {
			_, err := cmd.CombinedOutput()
			done <- err
		}()

		select {
		case err := <-done:
			if err == nil {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("buildwatch_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"log_size", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.LogSize, result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult, config BenchmarkConfig) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range config.Commands {
		fmt.Printf("%s:\n", command[0])
		for _, result := range results {
			if result.Command == command[0] {
				fmt.Printf("  %-8s: Cold: %s, Warm: %s\n", result.LogSize, result.ColdTime, result.WarmTime)
			}
		}
	}
}
