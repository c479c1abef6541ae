package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/cratedig/internal/features"
	"github.com/desertthunder/cratedig/internal/formatter"
	"github.com/desertthunder/cratedig/internal/repositories"
	"github.com/desertthunder/cratedig/internal/shared"
	"github.com/desertthunder/cratedig/internal/tasks"
	"github.com/desertthunder/cratedig/internal/ui"
	"github.com/urfave/cli/v3"
)

const snapshotFile = "features.snapshot"

// FeaturesFetch builds a feature table from a track id file or a recorded run and saves a snapshot.
func (r *Runner) FeaturesFetch(ctx context.Context, cmd *cli.Command) error {
	idsPath, runID := cmd.String("ids"), cmd.String("run")
	switch {
	case idsPath == "" && runID == "":
		return fmt.Errorf("%w: either --ids or --run must be provided", shared.ErrMissingArgument)
	case idsPath != "" && runID != "":
		return fmt.Errorf("%w: cannot specify both --ids and --run", shared.ErrInvalidArgument)
	case cmd.Bool("store") && runID == "":
		return fmt.Errorf("%w: --store needs --run", shared.ErrMissingArgument)
	}

	var ids []string
	if idsPath != "" {
		loaded, err := features.LoadIdentifiersFile(idsPath)
		if err != nil {
			return err
		}
		ids = loaded
	} else {
		loaded, err := r.runTracks(ctx, runID)
		if err != nil {
			return err
		}
		ids = loaded
	}
	r.logger.Info("loaded track ids", "count", len(ids))

	catalog, err := r.spotify()
	if err != nil {
		return err
	}
	fetcher := tasks.NewFeatureFetcher(catalog, r.logger)
	creds := r.config.Credentials.Spotify
	if err := fetcher.Configure(ctx, creds.ClientID, creds.ClientSecret); err != nil {
		return err
	}

	opts := tasks.FetchOpts{
		ShowProgress:      !cmd.Bool("quiet"),
		Workers:           r.config.Crawl.Workers,
		RequestsPerSecond: r.config.Crawl.RequestsPerSecond,
	}
	progress, done := r.drainProgress()
	table, err := fetcher.FetchTable(ctx, progress, ids, opts)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("feature fetch failed: %w", err)
	}

	out := cmd.String("out")
	if out == "" {
		out = filepath.Join(r.config.Crawl.OutputDir, snapshotFile)
	}
	if err := features.SaveSnapshot(out, table); err != nil {
		return err
	}

	if cmd.Bool("store") {
		if err := r.withStore(ctx, func(repo *repositories.FeatureRepository) error {
			return repo.SaveTable(runID, table)
		}); err != nil {
			return err
		}
	}

	return r.writePlain("%s", r.styles.Summary("Features fetched",
		ui.Field{Label: "Tracks", Value: table.Len()},
		ui.Field{Label: "Columns", Value: len(table.Columns())},
		ui.Field{Label: "Snapshot", Value: out},
	))
}

// FeaturesCluster fits the scaler and k-means on a feature table and labels every row.
func (r *Runner) FeaturesCluster(ctx context.Context, cmd *cli.Command) error {
	table, src, err := r.loadTable(ctx, cmd)
	if err != nil {
		return err
	}

	k, seed := r.config.Clustering.K, r.config.Clustering.Seed
	if cmd.IsSet("k") {
		k = cmd.Int("k")
	}
	if cmd.IsSet("seed") {
		seed = uint64(cmd.Int("seed"))
	}

	opts := features.DefaultKMeans()
	if r.config.Clustering.NInit > 0 {
		opts.NInit = r.config.Clustering.NInit
	}
	if r.config.Clustering.MaxIter > 0 {
		opts.MaxIter = r.config.Clustering.MaxIter
	}

	pipeline := features.NewPipeline(table, opts, r.logger)
	if err := pipeline.Fit(k, seed); err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}
	if err := pipeline.Assign(); err != nil {
		return fmt.Errorf("cluster assignment failed: %w", err)
	}

	labels, _ := table.Labels()
	fields := []ui.Field{
		{Label: "Tracks", Value: table.Len()},
		{Label: "Clusters", Value: k},
		{Label: "Seed", Value: seed},
		{Label: "Inertia", Value: fmt.Sprintf("%.3f", pipeline.Model().Inertia)},
	}
	for label, size := range features.Sizes(labels, k) {
		fields = append(fields, ui.Field{Label: fmt.Sprintf("Cluster %d", label), Value: size})
	}

	if path := cmd.String("csv"); path != "" {
		written, err := formatter.WriteCSVExport(table, path)
		if err != nil {
			return err
		}
		fields = append(fields, ui.Field{Label: "CSV", Value: written})
	}
	if path := cmd.String("summary"); path != "" {
		written, err := formatter.WriteSummaryExport(table, path)
		if err != nil {
			return err
		}
		fields = append(fields, ui.Field{Label: "Summary", Value: written})
	}

	if cmd.Bool("save") {
		if err := r.saveLabels(ctx, src, table, labels); err != nil {
			return err
		}
	}

	return r.writePlain("%s", r.styles.Summary("Clusters assigned", fields...))
}

// FeaturesSimilar prints the tracks that share the cluster of --id.
func (r *Runner) FeaturesSimilar(ctx context.Context, cmd *cli.Command) error {
	table, _, err := r.loadTable(ctx, cmd)
	if err != nil {
		return err
	}

	similar, err := table.Similar(cmd.String("id"), cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("no similar tracks for %s: %w", cmd.String("id"), err)
	}
	if len(similar) == 0 {
		return r.writePlain("%s\n", r.styles.Warn("no other tracks in this cluster"))
	}
	return formatter.WriteIdentifiers(r.output, similar)
}

// tableSource remembers where a feature table was read from so labels can be written back.
type tableSource struct {
	snapshot string
	runID    string
}

func (r *Runner) loadTable(ctx context.Context, cmd *cli.Command) (*features.Table, tableSource, error) {
	src := tableSource{snapshot: cmd.String("table"), runID: cmd.String("run")}
	switch {
	case src.snapshot != "" && src.runID != "":
		return nil, src, fmt.Errorf("%w: cannot specify both --table and --run", shared.ErrInvalidArgument)
	case src.runID != "":
		var table *features.Table
		err := r.withStore(ctx, func(repo *repositories.FeatureRepository) error {
			loaded, err := repo.LoadTable(src.runID)
			table = loaded
			return err
		})
		return table, src, err
	case src.snapshot == "":
		src.snapshot = filepath.Join(r.config.Crawl.OutputDir, snapshotFile)
	}

	table, err := features.LoadSnapshot(src.snapshot)
	return table, src, err
}

func (r *Runner) saveLabels(ctx context.Context, src tableSource, table *features.Table, labels []int) error {
	if src.runID != "" {
		return r.withStore(ctx, func(repo *repositories.FeatureRepository) error {
			return repo.SetClusters(src.runID, table.IDs(), labels)
		})
	}
	if err := features.SaveSnapshot(src.snapshot, table); err != nil {
		return err
	}
	r.logger.Info("saved labelled snapshot", "path", src.snapshot)
	return nil
}

func (r *Runner) withStore(ctx context.Context, fn func(*repositories.FeatureRepository) error) error {
	db, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(repositories.NewFeatureRepository(db))
}

func (r *Runner) runTracks(ctx context.Context, runID string) ([]string, error) {
	db, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return repositories.NewCrawlRunRepository(db).Tracks(runID)
}
