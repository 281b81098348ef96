package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL          string
	Total            int
	Rate             int
	Workers          int
	Environments     int
	DevicesPerEnv    int
	Users            int
	AnonymousPercent int
	ReadPercent      int
}

func parseFlags() Config {
	var c Config
	flag.StringVar(&c.BaseURL, "base-url", "", "service base URL, e.g. http://localhost:8080 (required)")
	flag.IntVar(&c.Total, "total", 10000, "total requests")
	flag.IntVar(&c.Rate, "rate", 500, "requests per second")
	flag.IntVar(&c.Workers, "workers", 0, "concurrent workers (0 = rate/20, at least 10)")
	flag.IntVar(&c.Environments, "environments", 3, "number of homes")
	flag.IntVar(&c.DevicesPerEnv, "devices", 20, "devices per home")
	flag.IntVar(&c.Users, "users", 5, "users per home")
	flag.IntVar(&c.AnonymousPercent, "anonymous-percent", 10, "share of toggles sent without a user")
	flag.IntVar(&c.ReadPercent, "read-percent", 0, "share of requests that read a chart instead of toggling")
	flag.Parse()

	if c.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "-base-url is required")
		flag.Usage()
		os.Exit(2)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Workers <= 0 {
		c.Workers = max(c.Rate/20, 10)
	}
	c.Rate = max(c.Rate, 1)
	c.Environments = max(c.Environments, 1)
	c.DevicesPerEnv = max(c.DevicesPerEnv, 1)
	c.Users = max(c.Users, 1)
	c.AnonymousPercent = min(max(c.AnonymousPercent, 0), 100)
	c.ReadPercent = min(max(c.ReadPercent, 0), 100)
	return c
}

// recorder collects per-request outcomes. Latencies are kept so the final
// report can show percentiles.
type recorder struct {
	ok, failed atomic.Uint64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int
}

func newRecorder(expected int) *recorder {
	return &recorder{
		latencies: make([]time.Duration, 0, expected),
		statuses:  make(map[int]int),
	}
}

func (r *recorder) observe(status int, took time.Duration, err error) {
	r.mu.Lock()
	r.statuses[status]++
	if err == nil {
		r.latencies = append(r.latencies, took)
	}
	r.mu.Unlock()

	if err != nil {
		r.failed.Add(1)
		return
	}
	r.ok.Add(1)
}

func (r *recorder) progress(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	var prevOK, prevFailed uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok, failed := r.ok.Load(), r.failed.Load()
			log.Printf("progress: +%d ok +%d failed (total ok=%d failed=%d)", ok-prevOK, failed-prevFailed, ok, failed)
			prevOK, prevFailed = ok, failed
		}
	}
}

func (r *recorder) report(elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.Slice(r.latencies, func(i, j int) bool { return r.latencies[i] < r.latencies[j] })
	pct := func(p float64) time.Duration {
		if len(r.latencies) == 0 {
			return 0
		}
		return r.latencies[int(p*float64(len(r.latencies)-1))]
	}

	ok, failed := r.ok.Load(), r.failed.Load()
	log.Printf("done in %s: ok=%d failed=%d throughput=%.1f req/s", elapsed.Round(time.Millisecond), ok, failed, float64(ok+failed)/elapsed.Seconds())
	log.Printf("latency p50=%s p95=%s p99=%s", pct(0.50), pct(0.95), pct(0.99))
	for status, n := range r.statuses {
		log.Printf("status %d: %d", status, n)
	}
}

type device struct {
	ID       string
	Name     string
	RoomID   string
	RoomName string
}

// home tracks the last state sent for every device so toggles alternate.
type home struct {
	id      string
	devices []device
	users   []string

	mu    sync.Mutex
	state map[string]bool
}

var (
	rooms       = []string{"Living Room", "Kitchen", "Bedroom", "Office", "Garage"}
	deviceKinds = []string{"Lamp", "Heater", "Fan", "Plug", "Blinds", "Speaker"}
	chartRanges = []string{"1h", "6h", "24h", "7d", "30d"}
)

func newHome(idx, devices, users int) *home {
	h := &home{
		id:    fmt.Sprintf("env_%02d", idx),
		state: make(map[string]bool, devices),
	}
	for i := range devices {
		room := rooms[i%len(rooms)]
		h.devices = append(h.devices, device{
			ID:       fmt.Sprintf("dev_%03d", i),
			Name:     fmt.Sprintf("%s %d", deviceKinds[i%len(deviceKinds)], i),
			RoomID:   strings.ToLower(strings.ReplaceAll(room, " ", "_")),
			RoomName: room,
		})
	}
	for i := range users {
		h.users = append(h.users, fmt.Sprintf("user_%02d", i))
	}
	return h
}

func (h *home) toggle(rng *rand.Rand, anonymousPercent int) map[string]any {
	d := h.devices[rng.Intn(len(h.devices))]

	h.mu.Lock()
	next := !h.state[d.ID]
	h.state[d.ID] = next
	h.mu.Unlock()

	payload := map[string]any{
		"deviceId":   d.ID,
		"deviceName": d.Name,
		"roomId":     d.RoomID,
		"roomName":   d.RoomName,
		"state":      next,
	}
	if rng.Intn(100) >= anonymousPercent {
		user := h.users[rng.Intn(len(h.users))]
		payload["userId"] = user
		payload["userName"] = strings.ToUpper(user[:1]) + user[1:]
	}
	return payload
}

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, workers int) *client {
	return &client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        workers,
				MaxIdleConnsPerHost: workers,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

func (c *client) do(ctx context.Context, method, path string, body any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func main() {
	cfg := parseFlags()

	homes := make([]*home, cfg.Environments)
	for i := range homes {
		homes[i] = newHome(i, cfg.DevicesPerEnv, cfg.Users)
	}
	api := newClient(cfg.BaseURL, cfg.Workers)
	rec := newRecorder(cfg.Total)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("target=%s rate=%d/s total=%d workers=%d homes=%d", cfg.BaseURL, cfg.Rate, cfg.Total, cfg.Workers, len(homes))

	progressCtx, stopProgress := context.WithCancel(ctx)
	go rec.progress(progressCtx, time.Second)

	jobs := make(chan struct{}, cfg.Workers)
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	var wg sync.WaitGroup
	for range cfg.Workers {
		rng := rand.New(rand.NewSource(seed.Int63()))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				h := homes[rng.Intn(len(homes))]
				start := time.Now()

				var status int
				var err error
				if rng.Intn(100) < cfg.ReadPercent {
					path := "/environments/" + h.id + "/chart?range=" + chartRanges[rng.Intn(len(chartRanges))]
					status, err = api.do(ctx, http.MethodGet, path, nil)
				} else {
					status, err = api.do(ctx, http.MethodPost, "/environments/"+h.id+"/activities", h.toggle(rng, cfg.AnonymousPercent))
				}
				rec.observe(status, time.Since(start), err)
			}
		}()
	}

	began := time.Now()
	pace := time.NewTicker(max(time.Second/time.Duration(cfg.Rate), time.Microsecond))
dispatch:
	for sent := 0; sent < cfg.Total; sent++ {
		select {
		case <-ctx.Done():
			break dispatch
		case <-pace.C:
			jobs <- struct{}{}
		}
	}
	pace.Stop()
	close(jobs)
	wg.Wait()
	stopProgress()

	rec.report(time.Since(began))
}
