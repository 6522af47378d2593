package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	hotRequests int
)

// Metrics
var (
	totalRequests uint64
	success200    uint64 // Attempt finished
	fail409       uint64 // Lost the loading race
	fail422       uint64 // Rejected pre-pipeline (no bank credential etc.)
	fail502       uint64 // Pipeline unavailable
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.IntVar(&hotRequests, "hot", 20, "Number of requests the workers contend over")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark | Workers: %d | Duration: %s | Hot set: %d", concurrency, duration, hotRequests)

	ids, err := setup()
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, ids)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// setup creates two profiles and a contended set of requests between
// them through the public API, so the benchmark measures the same code
// path real clients hit.
func setup() ([]string, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	for _, id := range []string{"bench_requester", "bench_fulfiller"} {
		payload := map[string]string{"id": id, "username": id}
		body, _ := json.Marshal(payload)
		resp, err := client.Post(targetURL+"/api/v1/profiles", "application/json", bytes.NewBuffer(body))
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
	}

	ids := make([]string, 0, hotRequests)
	for i := 0; i < hotRequests; i++ {
		payload := map[string]string{
			"requester_id": "bench_requester",
			"fulfiller_id": "bench_fulfiller",
			"text":         fmt.Sprintf("benchmark item %d", i),
		}
		body, _ := json.Marshal(payload)
		resp, err := client.Post(targetURL+"/api/v1/requests", "application/json", bytes.NewBuffer(body))
		if err != nil {
			return nil, err
		}
		var created struct {
			ID string `json:"id"`
		}
		json.NewDecoder(resp.Body).Decode(&created)
		resp.Body.Close()
		if created.ID == "" {
			return nil, fmt.Errorf("request creation returned status %d", resp.StatusCode)
		}
		ids = append(ids, created.ID)
	}
	return ids, nil
}

func worker(wg *sync.WaitGroup, start time.Time, ids []string) {
	defer wg.Done()
	client := &http.Client{Timeout: 60 * time.Second}

	for time.Since(start) < duration {
		id := ids[rand.Intn(len(ids))]

		resp, err := client.Post(targetURL+"/api/v1/requests/"+id+"/verify", "application/json", nil)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&success200, 1)
		case 409:
			atomic.AddUint64(&fail409, 1)
		case 422:
			atomic.AddUint64(&fail422, 1)
		case 502:
			atomic.AddUint64(&fail502, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s200 := atomic.LoadUint64(&success200)
	f409 := atomic.LoadUint64(&fail409)
	f422 := atomic.LoadUint64(&fail422)
	f502 := atomic.LoadUint64(&fail502)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	conflictRate := float64(f409) / float64(total) * 100

	results := map[string]interface{}{
		"duration_sec":      d.Seconds(),
		"total_requests":    total,
		"throughput_tps":    tps,
		"attempts_finished": s200,
		"conflicts":         f409,
		"conflict_rate_pct": conflictRate,
		"rejected":          f422,
		"unavailable":       f502,
		"errors":            fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	file, _ := os.Create("results_verify.json")
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
