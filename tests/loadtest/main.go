package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:8090"
	numWorkers   = 50
	testDuration = 10 * time.Second
)

var searchTerms = []string{"go", "the", "lgbt", "since:2019 news", "from:jdoe", "medias_only", "rt @"}

var httpClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type info struct {
	LoadID string `json:"load_id"`
	Counts struct {
		Tweets        int `json:"tweets"`
		Conversations int `json:"conversations"`
	} `json:"counts"`
}

// years spans the last decade; months without tweets still exercise the index.
var years = []int{2014, 2015, 2016, 2017, 2018, 2019, 2020, 2021, 2022, 2023}

func main() {
	fmt.Println("=== Archivist Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n\n", numWorkers, testDuration)

	fmt.Print("Waiting for archive... ")
	var current info
	for i := 0; ; i++ {
		if err := getJSON(baseURL+"/info", &current); err == nil {
			break
		}
		if i == 149 {
			fmt.Println("FAILED: archive not served")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Printf("OK (load %s, %d tweets, %d conversations)\n",
		current.LoadID, current.Counts.Tweets, current.Counts.Conversations)

	// Phase 1: every request is distinct, so the response cache never hits
	fmt.Println("\n--- Phase 1: Cold queries ---")
	var seq atomic.Int64
	runPhase(testDuration, func(rng *rand.Rand) result {
		n := seq.Add(1)
		switch rng.Intn(3) {
		case 0:
			return doGet("GET /tweets/search", fmt.Sprintf("/tweets/search?q=%s&limit=%d",
				url.QueryEscape(searchTerms[rng.Intn(len(searchTerms))]), n))
		case 1:
			return doGetMonth(rng, n)
		default:
			return doGet("GET /dms/find", fmt.Sprintf("/dms/find?q=%d", n))
		}
	})

	// Phase 2: a small key space served from cache
	fmt.Println("\n--- Phase 2: Hot queries ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.40:
			return doGet("GET /tweets/search", "/tweets/search?q="+url.QueryEscape(searchTerms[rng.Intn(len(searchTerms))]))
		case r < 0.70:
			return doGetMonth(rng, 0)
		case r < 0.85:
			return doGet("GET /dms/conversations", "/dms/conversations")
		default:
			return doGet("GET /info", "/info")
		}
	})
}

func getJSON(target string, v any) error {
	resp, err := httpClient.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func doGetMonth(rng *rand.Rand, nonce int64) result {
	path := fmt.Sprintf("/tweets/month?year=%d&month=%d", years[rng.Intn(len(years))], rng.Intn(12)+1)
	if nonce > 0 {
		path += fmt.Sprintf("&n=%d", nonce)
	}
	return doGet("GET /tweets/month", path)
}

func doGet(endpoint, path string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
