package httptransport

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fdctax/pkg/platform/httputil"
)

const readinessTimeout = 2 * time.Second

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Project     string `json:"project"`
	Timestamp   string `json:"timestamp"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, healthResponse{
			Status:      "ok",
			Environment: cfg.Environment,
			Project:     cfg.Project,
			Timestamp:   cfg.Clock().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler pings every configured dependency concurrently.
func readinessHandler(checks map[string]CheckFunc) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var mu sync.Mutex
		resp := readinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
		g, gctx := errgroup.WithContext(ctx)
		for _, name := range names {
			check := checks[name]
			g.Go(func() error {
				result := "ok"
				if err := check(gctx); err != nil {
					result = err.Error()
				}
				mu.Lock()
				resp.Checks[name] = result
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		for _, result := range resp.Checks {
			if result != "ok" {
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				break
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
