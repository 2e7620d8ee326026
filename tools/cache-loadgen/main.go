// cache-loadgen is a tiny, dependency-free HTTP load generator for
// exercising a running nuster-engine instance's request path and PURGE
// surface. It reuses HTTP connections (keep-alive) and supports
// concurrency so ad hoc hit/miss-ratio runs don't need an external
// tool.
//
// Modes:
//   - get:   repeatedly GET a single URI, to watch a rule settle into cache hits
//   - zipf:  approximate 80/20 skew (hot/cold) across N distinct URIs
//   - purge: send PURGE requests for a single URI
//
// Usage examples:
//
//	cache-loadgen -base=http://127.0.0.1:8080 -mode=get -path=/a -n=5000 -c=16
//	cache-loadgen -base=http://127.0.0.1:8080 -mode=zipf -hot_path=/hot -cold_paths=50 -n=8000 -c=16
//	cache-loadgen -base=http://127.0.0.1:8080 -mode=purge -path=/a -purge_method=PURGE -n=1
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeGet   modeType = "get"
	modeZipf  modeType = "zipf"
	modePurge modeType = "purge"
)

func main() {
	var (
		base        = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host, e.g. http://127.0.0.1:8080")
		modeS       = flag.String("mode", string(modeGet), "Mode: get|zipf|purge")
		path        = flag.String("path", "/", "Request path for get/purge mode")
		hotPath     = flag.String("hot_path", "/hot", "Hot path for zipf mode")
		coldN       = flag.Int("cold_paths", 50, "Number of cold paths to round-robin in zipf mode")
		purgeMethod = flag.String("purge_method", "PURGE", "HTTP method token to use in purge mode")
		N           = flag.Int("n", 5000, "Total requests to send")
		conc        = flag.Int("c", 8, "Number of concurrent workers")
		// Deterministic skew: hotEvery=5 means 4/5 go to the hot path, 1/5 to a cold path.
		hotEvery = flag.Int("hot_every", 5, "Zipf-like skew period (all but 1 of this period go to hot; minimum 2)")
		timeout  = flag.Duration("timeout", 20*time.Second, "Overall timeout for the run")
		connIdle = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle  = flag.Int("max_idle", 256, "Max idle connections total")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeGet && m != modeZipf && m != modePurge {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want get|zipf|purge)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeZipf {
		if *coldN <= 0 {
			fmt.Fprintln(os.Stderr, "-cold_paths must be > 0 in zipf mode")
			os.Exit(2)
		}
		if *hotEvery < 2 {
			*hotEvery = 2
		}
	}

	baseURL := strings.TrimRight(*base, "/")

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdle,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()

	worker := func(id, count int) {
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var p string
			switch m {
			case modeZipf:
				if ((i + id) % *hotEvery) != 0 {
					p = *hotPath
				} else {
					idx := ((i + id) / *hotEvery % *coldN) + 1
					p = fmt.Sprintf("/cold-%d", idx)
				}
			default:
				p = *path
			}
			if !strings.HasPrefix(p, "/") {
				p = "/" + p
			}
			method := http.MethodGet
			if m == modePurge {
				method = *purgeMethod
			}
			req, _ := http.NewRequestWithContext(ctx, method, baseURL+p, nil)
			resp, err := client.Do(req)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			} else {
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	var done atomic.Int64
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
			done.Add(int64(n))
		}(w, count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("cache-loadgen: mode=%s N=%d c=%d go=%d duration=%s throughput=%.0f req/s\n",
		m, *N, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops)
}
