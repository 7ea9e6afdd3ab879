package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/db"
)

// The simulator registers walk-ins from many concurrent "reception
// terminals" against one clinic/practitioner/date queue, then checks the
// issued tokens directly in Postgres: no duplicates, strictly increasing.

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	Requests    int
	PostgresDSN string
}

type Metrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&m.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.Latencies = append(m.Latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.Latencies))
	copy(sorted, m.Latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getenvDefault("SIM_API_URL", "http://127.0.0.1:8080"),
		Workers:     getenvInt("SIM_WORKERS", 16),
		Requests:    getenvInt("SIM_REQUESTS", 200),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

type registerRequest struct {
	ClinicID       string `json:"clinic_id"`
	PractitionerID string `json:"practitioner_id"`
	PatientRef     string `json:"patient_ref"`
	Date           string `json:"date"`
	Override       bool   `json:"override"`
}

type registerResponse struct {
	ID          string `json:"id"`
	TokenNumber int    `json:"token_number"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := loadSimConfig()

	clinicID := uuid.New()
	practitionerID := uuid.New()
	date := time.Now().Format("2006-01-02")

	log.Printf("simulating %d registrations across %d workers against %s",
		cfg.Requests, cfg.Workers, cfg.APIBaseURL)
	log.Printf("queue under test: clinic=%s practitioner=%s date=%s", clinicID, practitionerID, date)

	client := &http.Client{Timeout: 10 * time.Second}
	metrics := &Metrics{}
	var tokensMu sync.Mutex
	tokens := make([]int, 0, cfg.Requests)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range jobs {
				token, status, latency := register(client, cfg.APIBaseURL, registerRequest{
					ClinicID:       clinicID.String(),
					PractitionerID: practitionerID.String(),
					PatientRef:     fmt.Sprintf("sim-patient-%d", i),
					Date:           date,
					Override:       true,
				})
				metrics.Record(latency, status)
				if token > 0 {
					tokensMu.Lock()
					tokens = append(tokens, token)
					tokensMu.Unlock()
				}
			}
		}(w)
	}

	start := time.Now()
	for i := 0; i < cfg.Requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	log.Printf("done in %s: total=%d success=%d conflict=%d error=%d p50=%s p95=%s",
		elapsed, metrics.Total, metrics.Success, metrics.Conflict, metrics.Error,
		metrics.Percentile(0.50), metrics.Percentile(0.95))

	verifyTokens(tokens)

	if cfg.PostgresDSN != "" {
		verifyInDatabase(cfg.PostgresDSN, clinicID, practitionerID, date)
	} else {
		log.Println("POSTGRES_DSN not set, skipping database verification")
	}
}

func register(client *http.Client, baseURL string, req registerRequest) (token, status int, latency time.Duration) {
	body, _ := json.Marshal(req)

	start := time.Now()
	resp, err := client.Post(baseURL+"/queue/register", "application/json", bytes.NewReader(body))
	latency = time.Since(start)
	if err != nil {
		return 0, 0, latency
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, resp.StatusCode, latency
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, resp.StatusCode, latency
	}
	return out.TokenNumber, resp.StatusCode, latency
}

// verifyTokens checks what the API handed back: every token distinct.
func verifyTokens(tokens []int) {
	seen := make(map[int]bool, len(tokens))
	dupes := 0
	max := 0
	for _, t := range tokens {
		if seen[t] {
			dupes++
		}
		seen[t] = true
		if t > max {
			max = t
		}
	}

	if dupes > 0 {
		log.Printf("FAIL: %d duplicate tokens returned", dupes)
		return
	}
	log.Printf("OK: %d distinct tokens issued, highest %d", len(tokens), max)
}

// verifyInDatabase cross-checks stored rows against the counter.
func verifyInDatabase(dsn string, clinicID, practitionerID uuid.UUID, date string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Printf("database verification skipped: %v", err)
		return
	}
	defer pool.Close()

	checkStoredTokens(ctx, pool, clinicID, practitionerID, date)
}

func checkStoredTokens(ctx context.Context, pool *pgxpool.Pool, clinicID, practitionerID uuid.UUID, date string) {
	var total, distinct, max int
	err := pool.QueryRow(ctx, `
		SELECT count(*), count(DISTINCT token_number), COALESCE(max(token_number), 0)
		FROM appointments
		WHERE clinic_id = $1 AND practitioner_id = $2 AND visit_date = $3
	`, clinicID, practitionerID, date).Scan(&total, &distinct, &max)
	if err != nil {
		log.Printf("query stored tokens: %v", err)
		return
	}

	if total != distinct {
		log.Printf("FAIL: %d appointments but only %d distinct tokens", total, distinct)
		return
	}

	var counter int
	err = pool.QueryRow(ctx, `
		SELECT next_number
		FROM token_sequences
		WHERE clinic_id = $1 AND practitioner_id = $2 AND for_date = $3
	`, clinicID, practitionerID, date).Scan(&counter)
	if err != nil {
		log.Printf("query token counter: %v", err)
		return
	}

	log.Printf("OK: %d stored appointments, all tokens distinct, max=%d counter=%d", total, max, counter)
}
