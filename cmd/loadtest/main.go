package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the load test settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	outcome     string
)

// Metrics
var (
	totalRequests uint64
	created       uint64 // Fresh completions
	replayed      uint64 // Idempotent replays
	conflict409   uint64 // In-flight / race losers
	bankFail502   uint64 // Simulated bank failures
	lost504       uint64 // Simulated lost responses
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | duplicate")
	flag.StringVar(&outcome, "outcome", "SUCCESS", "Simulated outcome: SUCCESS | BANK_FAILURE | NETWORK_ERROR")
}

func main() {
	flag.Parse()
	log.Printf("Starting Load Test: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, i, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, id int, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 10 * time.Second}

	seq := 0
	for time.Since(start) < duration {
		seq++
		key := generateKey(id, seq, start)

		payload := map[string]interface{}{
			"idempotency_key":   key,
			"amount":            int64(100),
			"simulated_outcome": outcome,
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/payments", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			classify200(resp)
		case 409:
			atomic.AddUint64(&conflict409, 1)
		case 502:
			atomic.AddUint64(&bankFail502, 1)
		case 504:
			atomic.AddUint64(&lost504, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

// classify200 separates fresh completions from idempotent replays by the
// response message.
func classify200(resp *http.Response) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		atomic.AddUint64(&failOther, 1)
		return
	}
	if body.Message == "Transaction already performed" {
		atomic.AddUint64(&replayed, 1)
		return
	}
	atomic.AddUint64(&created, 1)
}

func generateKey(worker, seq int, start time.Time) string {
	if workload == "duplicate" {
		// All workers hammer a shared key that rotates every second,
		// maximizing same-key contention.
		epoch := int(time.Since(start) / time.Second)
		return fmt.Sprintf("dup-%d-%d", start.UnixNano(), epoch)
	}

	// Uniform: every request gets a fresh key.
	return fmt.Sprintf("load-%d-%d-%d", start.UnixNano(), worker, seq)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	tps := float64(total) / d.Seconds()

	conflicts := atomic.LoadUint64(&conflict409)
	var conflictRate float64
	if total > 0 {
		conflictRate = float64(conflicts) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":          workload,
		"outcome":           outcome,
		"duration_sec":      d.Seconds(),
		"total_requests":    total,
		"throughput_tps":    tps,
		"success_created":   atomic.LoadUint64(&created),
		"success_replay":    atomic.LoadUint64(&replayed),
		"conflicts":         conflicts,
		"conflict_rate_pct": conflictRate,
		"bank_failures":     atomic.LoadUint64(&bankFail502),
		"lost_responses":    atomic.LoadUint64(&lost504),
		"errors":            atomic.LoadUint64(&failOther),
	}

	// Print JSON results for downstream tooling to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
