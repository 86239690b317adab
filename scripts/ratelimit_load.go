// Ratelimit_load is a concurrent HTTP load tool for exercising the
// gateway's admission ceiling. It fires requests from one or more fake
// client IPs (via X-Forwarded-For) and reports how many were admitted
// versus throttled, along with latency percentiles and the Retry-After
// observed on the first throttle.
//
// Usage:
//
//	go run ratelimit_load.go -url http://localhost:8000/api/weatherbycity?city=London -requests 150
//	go run ratelimit_load.go -url http://localhost:8000/api/forecast?city=London -clients 3 -concurrency 20
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		url         = flag.String("url", "http://localhost:8000/api/weatherbycity?city=London", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 150, "Total number of requests to send")
		clients     = flag.Int("clients", 1, "Number of distinct fake client IPs")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var admitted int32
	var throttled int32
	var failed int32
	var firstRetryAfter atomic.Value

	latencies := make([]time.Duration, *requests)

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				req, err := http.NewRequest(http.MethodGet, *url, nil)
				if err != nil {
					atomic.AddInt32(&failed, 1)
					continue
				}
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i%*clients+1))

				start := time.Now()
				res, err := client.Do(req)
				latencies[i] = time.Since(start)

				if err != nil {
					atomic.AddInt32(&failed, 1)
					continue
				}
				io.Copy(io.Discard, res.Body)
				res.Body.Close()

				switch res.StatusCode {
				case http.StatusTooManyRequests:
					atomic.AddInt32(&throttled, 1)
					firstRetryAfter.CompareAndSwap(nil, res.Header.Get("Retry-After"))
				case http.StatusOK:
					atomic.AddInt32(&admitted, 1)
				default:
					atomic.AddInt32(&failed, 1)
				}

				if *verbose {
					fmt.Printf("request %d: %d remaining=%s in %s\n",
						i, res.StatusCode, res.Header.Get("X-RateLimit-Remaining"), latencies[i])
				}
			}
		}()
	}

	startedAt := time.Now()
	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(startedAt)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	pct := func(p float64) time.Duration {
		idx := int(float64(len(latencies)) * p)
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}

	fmt.Printf("sent %d requests from %d client(s) in %s\n", *requests, *clients, elapsed)
	fmt.Printf("admitted:  %d\n", admitted)
	fmt.Printf("throttled: %d\n", throttled)
	fmt.Printf("failed:    %d\n", failed)
	if ra, ok := firstRetryAfter.Load().(string); ok && ra != "" {
		fmt.Printf("first Retry-After: %ss\n", ra)
	}
	fmt.Printf("latency p50=%s p95=%s p99=%s\n", pct(0.50), pct(0.95), pct(0.99))

	if failed > 0 {
		os.Exit(1)
	}
}
