package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"
)

// BenchmarkConfig holds benchmark configuration
type BenchmarkConfig struct {
	BaseURL       string
	NumSeries     int
	NumPoints     int
	MissingRatio  float64 // Share of positions sent as null
	Duration      time.Duration
	AnalyzeWorker int
	DetectWorkers int
	Method        string
	Repeat        bool // Resend identical bodies to measure the cache path
	APIKey        string
	OutputDir     string
	HTTPClient    *http.Client // Shared HTTP client for connection pooling
}

// Metrics holds benchmark metrics for one endpoint
type Metrics struct {
	Latencies  []float64
	Errors     int64
	Success    int64
	Bytes      int64
	FirstError string
	mu         sync.Mutex
}

func (m *Metrics) record(latency float64, size int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Latencies = append(m.Latencies, latency)
	if err != nil {
		m.Errors++
		if m.FirstError == "" {
			m.FirstError = err.Error()
		}
		return
	}
	m.Success++
	m.Bytes += int64(size)
}

// Result represents benchmark results
type Result struct {
	Operation  string
	TotalOps   int64
	SuccessOps int64
	ErrorOps   int64
	Bytes      int64
	Duration   time.Duration
	Throughput float64 // ops/sec
	AvgLatency float64 // ms
	MinLatency float64 // ms
	MaxLatency float64 // ms
	P50Latency float64 // ms
	P95Latency float64 // ms
	P99Latency float64 // ms
	ErrorMsg   string  // First error message
}

func main() {
	config := BenchmarkConfig{}
	flag.StringVar(&config.BaseURL, "url", "http://127.0.0.1:5555", "Base URL of the API")
	flag.IntVar(&config.NumSeries, "series", 8, "Named series per analyze request")
	flag.IntVar(&config.NumPoints, "points", 365, "Positions per series")
	flag.Float64Var(&config.MissingRatio, "missing", 0.02, "Share of positions sent as null")
	flag.DurationVar(&config.Duration, "duration", 30*time.Second, "Benchmark duration")
	flag.IntVar(&config.AnalyzeWorker, "analyze-workers", 8, "Concurrent POST /v1/analyze workers")
	flag.IntVar(&config.DetectWorkers, "detect-workers", 2, "Concurrent POST /v1/detect workers")
	flag.StringVar(&config.Method, "method", "zscore", "Detector used by detect workers")
	flag.BoolVar(&config.Repeat, "repeat", false, "Resend identical bodies (exercises the result cache)")
	flag.StringVar(&config.APIKey, "api-key", "", "API key for authentication")
	flag.StringVar(&config.OutputDir, "out", "benchmark_results", "Directory for the results file")
	flag.Parse()

	config.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== Trendscope Benchmark Tool ===\n")
	printConfig(os.Stdout, config)
	fmt.Printf("\n")

	analyze, detect := runBenchmark(config)

	analyzeResult := calculateResult("Analyze", analyze, config.Duration)
	detectResult := calculateResult("Detect", detect, config.Duration)

	fmt.Printf("\n=== Benchmark Results ===\n\n")
	writeResult(os.Stdout, analyzeResult)
	fmt.Println()
	writeResult(os.Stdout, detectResult)

	saveResults(config, analyzeResult, detectResult)
}

func printConfig(w io.Writer, config BenchmarkConfig) {
	_, _ = fmt.Fprintf(w, "Configuration:\n")
	_, _ = fmt.Fprintf(w, "  URL: %s\n", config.BaseURL)
	_, _ = fmt.Fprintf(w, "  Series x Points: %d x %s\n", config.NumSeries, humanize.Comma(int64(config.NumPoints)))
	_, _ = fmt.Fprintf(w, "  Missing Ratio: %.2f\n", config.MissingRatio)
	_, _ = fmt.Fprintf(w, "  Duration: %s\n", config.Duration)
	_, _ = fmt.Fprintf(w, "  Analyze Workers: %d\n", config.AnalyzeWorker)
	_, _ = fmt.Fprintf(w, "  Detect Workers: %d (%s)\n", config.DetectWorkers, config.Method)
	_, _ = fmt.Fprintf(w, "  Repeat Bodies: %v\n", config.Repeat)
}

func runBenchmark(config BenchmarkConfig) (*Metrics, *Metrics) {
	analyze := &Metrics{Latencies: make([]float64, 0, 10000)}
	detect := &Metrics{Latencies: make([]float64, 0, 1000)}

	var wg sync.WaitGroup
	var sent atomic.Int64
	stopCh := make(chan struct{})
	startTime := time.Now()

	for i := 0; i < config.AnalyzeWorker; i++ {
		wg.Add(1)
		go analyzeWorker(i, config, analyze, &sent, stopCh, &wg)
	}

	for i := 0; i < config.DetectWorkers; i++ {
		wg.Add(1)
		go detectWorker(i, config, detect, &sent, stopCh, &wg)
	}

	go progressReporter(analyze, detect, &sent, config.Duration, startTime)

	time.Sleep(config.Duration)
	close(stopCh)
	wg.Wait()

	return analyze, detect
}

func analyzeWorker(id int, config BenchmarkConfig, metrics *Metrics, sent *atomic.Int64, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(int64(id) + 1))
	fixed := analyzeBody(rng, config)

	for {
		select {
		case <-stopCh:
			return
		default:
			body := fixed
			if !config.Repeat {
				body = analyzeBody(rng, config)
			}

			start := time.Now()
			size, err := makeRequest(config, "POST", config.BaseURL+"/v1/analyze", body)
			metrics.record(time.Since(start).Seconds()*1000, size, err)
			sent.Add(1)
		}
	}
}

func detectWorker(id int, config BenchmarkConfig, metrics *Metrics, sent *atomic.Int64, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(int64(id) + 1000))
	url := fmt.Sprintf("%s/v1/detect/%s", config.BaseURL, config.Method)

	for {
		select {
		case <-stopCh:
			return
		default:
			body := map[string]interface{}{"values": syntheticSeries(rng, config.NumPoints, config.MissingRatio)}

			start := time.Now()
			size, err := makeRequest(config, "POST", url, body)
			metrics.record(time.Since(start).Seconds()*1000, size, err)
			sent.Add(1)
		}
	}
}

func analyzeBody(rng *rand.Rand, config BenchmarkConfig) map[string]interface{} {
	series := make(map[string]interface{}, config.NumSeries)
	for i := 0; i < config.NumSeries; i++ {
		series[fmt.Sprintf("series_%03d", i)] = syntheticSeries(rng, config.NumPoints, config.MissingRatio)
	}
	return map[string]interface{}{"series": series}
}

// syntheticSeries returns a weekly-seasonal series with an upward drift, noise,
// a few spikes and nulls
func syntheticSeries(rng *rand.Rand, n int, missingRatio float64) []*float64 {
	values := make([]*float64, n)
	base := 100 + rng.Float64()*900
	for i := range values {
		if rng.Float64() < missingRatio {
			continue
		}
		v := base + 0.1*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/7) + rng.NormFloat64()*3
		if rng.Float64() < 0.01 {
			v *= 3
		}
		values[i] = &v
	}
	return values
}

func progressReporter(analyze, detect *Metrics, sent *atomic.Int64, duration time.Duration, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		elapsed := time.Since(startTime)
		if elapsed >= duration {
			return
		}

		analyze.mu.Lock()
		analyzed, analyzeErrors := analyze.Success, analyze.Errors
		analyze.mu.Unlock()
		detect.mu.Lock()
		detected, detectErrors := detect.Success, detect.Errors
		detect.mu.Unlock()

		remaining := duration - elapsed
		fmt.Printf("[%s remaining] Requests: %s | Analyze: %d (%.0f/s, %d errors) | Detect: %d (%.0f/s, %d errors)\n",
			remaining.Round(time.Second), humanize.Comma(sent.Load()),
			analyzed, float64(analyzed)/elapsed.Seconds(), analyzeErrors,
			detected, float64(detected)/elapsed.Seconds(), detectErrors)
	}
}

func makeRequest(config BenchmarkConfig, method, url string, data interface{}) (int, error) {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return 0, err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")
	if config.APIKey != "" {
		req.Header.Set("X-API-Key", config.APIKey)
	}

	resp, err := config.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Read and discard body to reuse connection
	n, _ := io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return int(n), fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return int(n), nil
}

func calculateResult(operation string, m *Metrics, duration time.Duration) Result {
	result := Result{
		Operation:  operation,
		TotalOps:   m.Success + m.Errors,
		SuccessOps: m.Success,
		ErrorOps:   m.Errors,
		Bytes:      m.Bytes,
		Duration:   duration,
		ErrorMsg:   m.FirstError,
	}
	if len(m.Latencies) == 0 {
		return result
	}

	latencies := m.Latencies
	sort.Float64s(latencies)

	result.Throughput = float64(m.Success) / duration.Seconds()
	result.MinLatency = latencies[0]
	result.MaxLatency = latencies[len(latencies)-1]
	result.AvgLatency = stat.Mean(latencies, nil)
	result.P50Latency = stat.Quantile(0.50, stat.Empirical, latencies, nil)
	result.P95Latency = stat.Quantile(0.95, stat.Empirical, latencies, nil)
	result.P99Latency = stat.Quantile(0.99, stat.Empirical, latencies, nil)
	return result
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func writeResult(w io.Writer, r Result) {
	_, _ = fmt.Fprintf(w, "=== %s Operations ===\n", r.Operation)
	_, _ = fmt.Fprintf(w, "Total Operations: %s\n", humanize.Comma(r.TotalOps))
	_, _ = fmt.Fprintf(w, "Success:          %d (%.2f%%)\n", r.SuccessOps, percentOf(r.SuccessOps, r.TotalOps))
	_, _ = fmt.Fprintf(w, "Errors:           %d (%.2f%%)\n", r.ErrorOps, percentOf(r.ErrorOps, r.TotalOps))
	_, _ = fmt.Fprintf(w, "Response Bytes:   %s\n", humanize.Bytes(uint64(r.Bytes)))
	_, _ = fmt.Fprintf(w, "Duration:         %s\n", r.Duration)
	_, _ = fmt.Fprintf(w, "Throughput:       %.2f ops/sec\n", r.Throughput)
	if r.ErrorOps > 0 && len(r.ErrorMsg) > 0 {
		_, _ = fmt.Fprintf(w, "First Error:      %s\n", r.ErrorMsg)
	}
	_, _ = fmt.Fprintf(w, "\nLatency (ms):\n")
	_, _ = fmt.Fprintf(w, "  Min:  %.2f\n", r.MinLatency)
	_, _ = fmt.Fprintf(w, "  Avg:  %.2f\n", r.AvgLatency)
	_, _ = fmt.Fprintf(w, "  P50:  %.2f\n", r.P50Latency)
	_, _ = fmt.Fprintf(w, "  P95:  %.2f\n", r.P95Latency)
	_, _ = fmt.Fprintf(w, "  P99:  %.2f\n", r.P99Latency)
	_, _ = fmt.Fprintf(w, "  Max:  %.2f\n", r.MaxLatency)
}

func saveResults(config BenchmarkConfig, results ...Result) {
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		fmt.Printf("Failed to create result directory: %v\n", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(config.OutputDir, fmt.Sprintf("api_benchmark_%s.txt", timestamp))

	f, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Failed to create result file: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "=== Trendscope API Benchmark Results ===\n")
	_, _ = fmt.Fprintf(f, "Date: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	printConfig(f, config)
	_, _ = fmt.Fprintf(f, "\n")

	for i, r := range results {
		if i > 0 {
			_, _ = fmt.Fprintf(f, "\n")
		}
		writeResult(f, r)
	}

	fmt.Printf("\nResults saved to: %s\n", filename)
}
