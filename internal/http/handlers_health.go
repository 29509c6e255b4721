package httpx

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthHandler answers /healthz. With no checks it is a plain liveness probe;
// otherwise every check runs concurrently and any failure yields 503.
type HealthHandler struct {
	Checks map[string]HealthCheck
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, code := h.run(r.Context())
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, resp)
}

func (h *HealthHandler) run(ctx context.Context) (healthResponse, int) {
	if h == nil || len(h.Checks) == 0 {
		return healthResponse{Status: "ok"}, http.StatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(names))
		failed  bool
	)
	// Checks never return errors to the group so one failure does not cancel the rest.
	var g errgroup.Group
	for _, name := range names {
		check := h.Checks[name]
		g.Go(func() error {
			status := "ok"
			if err := check(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != "ok" {
				failed = true
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed {
		return healthResponse{Status: "degraded", Checks: results}, http.StatusServiceUnavailable
	}
	return healthResponse{Status: "ok", Checks: results}, http.StatusOK
}
