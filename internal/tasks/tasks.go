// package tasks implements the catalog crawl and feature fetch operations.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cratedig/internal/services"
	"github.com/desertthunder/cratedig/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// session carries what one operation shares across its calls: the catalog, the pacer,
// the progress channel and the worker bound.
type session struct {
	catalog  services.Catalog
	limiter  *rate.Limiter
	progress chan<- ProgressUpdate
	workers  int
	logger   *log.Logger
}

func newSession(catalog services.Catalog, progress chan<- ProgressUpdate, showProgress bool, workers int, rps float64, logger *log.Logger) *session {
	s := &session{catalog: catalog, workers: max(workers, 1), logger: logger}
	if showProgress {
		s.progress = progress
	}
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return s
}

// wait blocks until the pacer admits one more catalog call.
func (s *session) wait(ctx context.Context) error {
	if s.limiter == nil {
		return ctx.Err()
	}
	return s.limiter.Wait(ctx)
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (s *session) sendProgress(update ProgressUpdate) {
	if s.progress == nil {
		return
	}
	select {
	case s.progress <- update:
	default:
	}
}

// fanOut calls fn for every index in [0, n) with at most workers calls in flight and returns
// the results in index order. The first error stops scheduling and is returned.
func fanOut[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func flatten[T any](groups [][]T) []T {
	var n int
	for _, g := range groups {
		n += len(g)
	}
	out := make([]T, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// checkAuth warns when the catalog needs credentials that were never supplied.
// It reports whether the catalog is ready; a false result is not an error.
func checkAuth(catalog services.Catalog, logger *log.Logger) bool {
	auth, ok := catalog.(services.Authenticator)
	if !ok || auth.Authenticated() {
		return true
	}
	logger.Warn("catalog credentials are not configured; requests will fail until Configure is called")
	return false
}

// configure authenticates catalog when it needs credentials. Empty credentials are
// reported and skipped; [checkAuth] warns again when the catalog is used.
func configure(ctx context.Context, catalog services.Catalog, logger *log.Logger, clientID, clientSecret string) error {
	auth, ok := catalog.(services.Authenticator)
	if !ok {
		return nil
	}
	if clientID == "" || clientSecret == "" {
		logger.Warn("client id or secret missing; skipping catalog authentication")
		return nil
	}
	if err := auth.Authenticate(ctx, map[string]string{"client_id": clientID, "client_secret": clientSecret}); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return nil
}
