package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cratedig/internal/features"
	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/services"
	"github.com/desertthunder/cratedig/internal/shared"
)

// FetchOpts configures a feature fetch.
type FetchOpts struct {
	ShowProgress      bool
	Workers           int
	RequestsPerSecond float64
}

// FeatureFetcher builds feature tables from identifier lists.
type FeatureFetcher struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewFeatureFetcher creates a fetcher over catalog.
func NewFeatureFetcher(catalog services.Catalog, logger *log.Logger) *FeatureFetcher {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &FeatureFetcher{catalog: catalog, logger: logger}
}

// Configure hands credentials to the catalog. Missing credentials only log a warning.
func (f *FeatureFetcher) Configure(ctx context.Context, clientID, clientSecret string) error {
	return configure(ctx, f.catalog, f.logger, clientID, clientSecret)
}

// FetchTable issues one feature lookup per identifier and assembles the rows in load order.
// The first failed lookup aborts the fetch.
func (f *FeatureFetcher) FetchTable(ctx context.Context, progress chan<- ProgressUpdate, ids []string, opts FetchOpts) (*features.Table, error) {
	if f.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	checkAuth(f.catalog, f.logger)

	s := newSession(f.catalog, progress, opts.ShowProgress, opts.Workers, opts.RequestsPerSecond, f.logger)
	total := len(ids)

	vectors, err := fanOut(ctx, s.workers, total, func(ctx context.Context, i int) (*models.FeatureVector, error) {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		s.sendProgress(featuresUpdate(i+1, total, ids[i]))
		fv, err := f.catalog.AudioFeatures(ctx, ids[i])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch features for %q: %w", ids[i], err)
		}
		return fv, nil
	})
	if err != nil {
		return nil, err
	}

	table, err := features.NewTable(ids, vectors)
	if err != nil {
		return nil, err
	}
	f.logger.Info("fetched feature table", "rows", table.Len(), "columns", len(table.Columns()))
	return table, nil
}
