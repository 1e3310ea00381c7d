// README: Bench cases: environment, booking lifecycle, rating, concurrency, consistency and throughput checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"campusride/internal/infra"
	"campusride/migrations"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	run      string
	student  string
	driver   string
	flowID   string
	tokenErr error
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	run := fmt.Sprintf("%d", time.Now().UnixNano())
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		run:   run,
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := infra.NewDB(ctx, r.cfg.DSN, r.cfg.Concurrency); err == nil {
			r.db = db
		} else {
			fmt.Printf("db unavailable: %v\n", err)
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}
	r.student = r.token("bench-student-"+r.run, "student")
	r.driver = r.token("bench-driver-"+r.run, "driver")

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) token(subject, role string) string {
	tok, err := infra.SignJWT(r.cfg.JWTSecret, subject, role, time.Hour)
	if err != nil {
		r.tokenErr = err
	}
	return tok
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "DB reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "feed broker reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "embedded goose migrations",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				if err := infra.Migrate(ctx, r.db); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "every table in the embedded migrations",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(migrations.FS)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("%d tables", len(tables))}
			},
		},
		{
			Name:  "API: health",
			Focus: "server reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				res, _ := r.expect(ctx, http.MethodGet, "/health", "", nil, http.StatusOK)
				return res
			},
		},
		{
			Name:  "Auth: bench tokens",
			Focus: "HS256 tokens minted",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.tokenErr != nil {
					return Result{Status: statusFail, Note: r.tokenErr.Error()}
				}
				res, _ := r.expect(ctx, http.MethodGet, "/api/users/me", r.student, nil, http.StatusOK)
				return res
			},
		},

		// Lifecycle
		{
			Name:  "Booking: create",
			Focus: "student creates pending booking",
			Run: func(ctx context.Context, r *Runner) Result {
				res, body := r.expect(ctx, http.MethodPost, "/api/bookings", r.student, rideBody("library", "hostel"), http.StatusCreated)
				if id, ok := body["id"].(string); ok {
					r.flowID = id
				}
				return res
			},
		},
		{
			Name:  "Booking: same pickup and dropoff -> 400",
			Focus: "location validation",
			Run: func(ctx context.Context, r *Runner) Result {
				res, _ := r.expect(ctx, http.MethodPost, "/api/bookings", r.student, rideBody("library", "library"), http.StatusBadRequest)
				return res
			},
		},
		r.flowCase("Booking: driver accept", http.MethodPost, "/accept", func(r *Runner) string { return r.driver }, nil, http.StatusOK),
		r.flowCase("Booking: second accept -> 409", http.MethodPost, "/accept", func(r *Runner) string { return r.token("bench-driver-late-"+r.run, "driver") }, nil, http.StatusConflict),
		r.flowCase("Booking: cancel after accept -> 409", http.MethodPost, "/cancel", func(r *Runner) string { return r.student }, nil, http.StatusConflict),
		r.flowCase("Booking: complete by other driver -> 403", http.MethodPost, "/complete", func(r *Runner) string { return r.token("bench-driver-other-"+r.run, "driver") }, nil, http.StatusForbidden),
		r.flowCase("Booking: complete", http.MethodPost, "/complete", func(r *Runner) string { return r.driver }, nil, http.StatusOK),
		r.flowCase("Rating: fractional -> 400", http.MethodPost, "/rate", func(r *Runner) string { return r.student }, map[string]any{"rating": 3.5}, http.StatusBadRequest),
		r.flowCase("Rating: rate", http.MethodPost, "/rate", func(r *Runner) string { return r.student }, map[string]any{"rating": 4, "feedback": "bench"}, http.StatusOK),
		r.flowCase("Rating: rate again -> 409", http.MethodPost, "/rate", func(r *Runner) string { return r.student }, map[string]any{"rating": 5}, http.StatusConflict),
		{
			Name:  "Rating: driver average",
			Focus: "aggregate equals the single rating",
			Run: func(ctx context.Context, r *Runner) Result {
				res, body := r.expect(ctx, http.MethodGet, "/api/drivers/bench-driver-"+r.run+"/rating", r.student, nil, http.StatusOK)
				if res.Status != statusPass {
					return res
				}
				if v, ok := body["rating"].(float64); !ok || v != 4 {
					return Result{Status: statusFail, Latency: res.Latency, Note: fmt.Sprintf("rating=%v", body["rating"])}
				}
				return res
			},
		},
		{
			Name:  "Cancel: pending booking",
			Focus: "student withdraws before acceptance",
			Run: func(ctx context.Context, r *Runner) Result {
				res, body := r.expect(ctx, http.MethodPost, "/api/bookings", r.student, rideBody("cafeteria", "parking_lot"), http.StatusCreated)
				if res.Status != statusPass {
					return res
				}
				id, _ := body["id"].(string)
				res, _ = r.expect(ctx, http.MethodPost, "/api/bookings/"+id+"/cancel", r.student, nil, http.StatusOK)
				return res
			},
		},

		// Consistency
		{
			Name:  "Consistency: status_version and events",
			Focus: "four transitions recorded for the flow booking",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				if r.flowID == "" {
					return Result{Status: statusFail, Note: "flow booking was not created"}
				}
				var version, events int
				err := r.db.QueryRow(ctx, `
					SELECT b.status_version, COUNT(e.id)
					FROM bookings b LEFT JOIN booking_state_events e ON e.booking_id = b.id
					WHERE b.id = $1
					GROUP BY b.status_version`, r.flowID,
				).Scan(&version, &events)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if version != 3 || events != 4 {
					return Result{Status: statusFail, Note: fmt.Sprintf("status_version=%d events=%d", version, events)}
				}
				return Result{Status: statusPass}
			},
		},

		// Concurrency
		{
			Name:  "Concurrency: many drivers accept one booking",
			Focus: "exactly one accept succeeds",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentAccept(ctx, r)
			},
		},

		// Performance
		{
			Name:  "Perf: create booking throughput",
			Focus: "sustained booking creation",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, "/api/bookings", rideBody("academic_block", "sports_complex"))
			},
		},
	}
}

func rideBody(pickup, dropoff string) map[string]any {
	return map[string]any{
		"pickup_location":  pickup,
		"dropoff_location": dropoff,
		"scheduled_date":   time.Now().Format("2006-01-02"),
		"scheduled_time":   "09:00",
	}
}

// flowCase runs one transition against the booking created by "Booking: create".
func (r *Runner) flowCase(name, method, suffix string, token func(*Runner) string, body any, want int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "booking lifecycle",
		Run: func(ctx context.Context, r *Runner) Result {
			if r.flowID == "" {
				return Result{Status: statusFail, Note: "flow booking was not created"}
			}
			res, _ := r.expect(ctx, method, "/api/bookings/"+r.flowID+suffix, token(r), body, want)
			return res
		},
	}
}

func (r *Runner) expect(ctx context.Context, method, path, token string, body any, want int) (Result, map[string]any) {
	start := time.Now()
	status, payload, err := r.do(ctx, method, path, token, body)
	latency := time.Since(start)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}, nil
	}
	if status != want {
		note := fmt.Sprintf("status=%d want=%d", status, want)
		if msg, ok := payload["error"].(string); ok {
			note += " error=" + msg
		}
		return Result{Status: statusFail, Latency: latency, Note: note}, payload
	}
	return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}, payload
}

func (r *Runner) do(ctx context.Context, method, path, token string, body any) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	payload := map[string]any{}
	_ = json.Unmarshal(raw, &payload)
	return resp.StatusCode, payload, nil
}

func concurrentAccept(ctx context.Context, r *Runner) Result {
	res, body := r.expect(ctx, http.MethodPost, "/api/bookings", r.student, rideBody("hostel", "library"), http.StatusCreated)
	if res.Status != statusPass {
		return res
	}
	id, _ := body["id"].(string)

	tokens := make([]string, r.cfg.Concurrency)
	for i := range tokens {
		tokens[i] = r.token(fmt.Sprintf("bench-racer-%s-%d", r.run, i), "driver")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		succ     int
		conflict int
		other    int
	)
	start := make(chan struct{})
	begin := time.Now()
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			<-start
			status, _, err := r.do(ctx, http.MethodPost, "/api/bookings/"+id+"/accept", tok, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				other++
			case status == http.StatusOK:
				succ++
			case status == http.StatusConflict:
				conflict++
			default:
				other++
			}
		}(tok)
	}
	close(start)
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d other=%d", succ, conflict, other)
	if succ == 1 && other == 0 {
		return Result{Status: statusPass, Latency: time.Since(begin), Note: note}
	}
	return Result{Status: statusFail, Latency: time.Since(begin), Note: note}
}

func perfLoad(ctx context.Context, r *Runner, path string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.do(ctx, http.MethodPost, path, r.student, payload)
				mu.Lock()
				if err != nil || status != http.StatusCreated {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("no requests completed, errors=%d", errCount)}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTable.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}
