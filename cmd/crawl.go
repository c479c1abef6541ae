package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cratedig/internal/repositories"
	"github.com/desertthunder/cratedig/internal/tasks"
	"github.com/desertthunder/cratedig/internal/ui"
	"github.com/urfave/cli/v3"
)

// Crawl walks category → playlist → track and optionally expands through albums.
func (r *Runner) Crawl(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.spotify()
	if err != nil {
		return err
	}

	crawler := tasks.NewCrawler(catalog, r.logger)
	creds := r.config.Credentials.Spotify
	if err := crawler.Configure(ctx, creds.ClientID, creds.ClientSecret); err != nil {
		return err
	}

	opts := tasks.CrawlOpts{
		DeepLookup:        cmd.Bool("deep") || r.config.Crawl.DeepLookup,
		Persist:           cmd.Bool("save"),
		ShowProgress:      !cmd.Bool("quiet"),
		OutputDir:         r.config.Crawl.OutputDir,
		Workers:           r.config.Crawl.Workers,
		RequestsPerSecond: r.config.Crawl.RequestsPerSecond,
	}
	if cmd.IsSet("out") {
		opts.OutputDir = cmd.String("out")
	}
	if cmd.IsSet("workers") {
		opts.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("rps") {
		opts.RequestsPerSecond = cmd.Float("rps")
	}

	progress, done := r.drainProgress()
	result, err := crawler.Run(ctx, progress, opts)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if cmd.Bool("store") {
		if err := r.storeRun(ctx, result); err != nil {
			return err
		}
	}

	fields := []ui.Field{
		{Label: "Run", Value: result.RunID},
		{Label: "Categories", Value: len(result.Categories)},
		{Label: "Skipped", Value: len(result.SkippedCategories)},
		{Label: "Playlists", Value: len(result.Playlists)},
		{Label: "Tracks", Value: len(result.TrackIDs)},
	}
	if result.DeepLookup {
		fields = append(fields,
			ui.Field{Label: "Albums", Value: len(result.Albums)},
			ui.Field{Label: "Album tracks", Value: len(result.DeepTrackIDs)},
		)
	}
	if result.OutputFile != "" {
		fields = append(fields, ui.Field{Label: "Saved to", Value: result.OutputFile})
	}
	return r.writePlain("%s", r.styles.Summary("Crawl complete", fields...))
}

// storeRun records the run summary and its final track ids.
func (r *Runner) storeRun(ctx context.Context, result *tasks.CrawlResult) error {
	db, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewCrawlRunRepository(db)
	run := result.Run()
	if err := repo.Create(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	if err := repo.AddTracks(run.RunID, result.Final()); err != nil {
		return fmt.Errorf("failed to record run tracks: %w", err)
	}

	r.logger.Info("recorded crawl run", "run", run.RunID, "sequence", run.Sequence)
	return nil
}
