package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/cratedig/internal/formatter"
	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/repositories"
	"github.com/desertthunder/cratedig/internal/ui"
	"github.com/urfave/cli/v3"
)

func (r *Runner) withRuns(ctx context.Context, fn func(*repositories.CrawlRunRepository) error) error {
	db, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(repositories.NewCrawlRunRepository(db))
}

// RunsList prints recorded runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": cmd.Int("limit")}
	if cmd.Bool("deep") {
		criteria["deep_lookup"] = true
	}

	var runs []*models.CrawlRun
	if err := r.withRuns(ctx, func(repo *repositories.CrawlRunRepository) (err error) {
		runs, err = repo.List(criteria)
		return err
	}); err != nil {
		return err
	}

	if cmd.Bool("json") {
		for _, run := range runs {
			data, err := formatter.ToRunJSON(run)
			if err != nil {
				return err
			}
			if err := r.writeJSON(data); err != nil {
				return err
			}
		}
		return nil
	}

	if len(runs) == 0 {
		return r.writePlain("%s\n", r.styles.Warn("no recorded runs"))
	}
	for _, run := range runs {
		mode := "playlists"
		if run.DeepLookup {
			mode = "deep"
		}
		if err := r.writePlain("#%-4d %s  %-9s %6d tracks  %s\n",
			run.Sequence, run.RunID, mode, run.TrackCount, run.StartedAt.Local().Format(time.DateTime)); err != nil {
			return err
		}
	}
	return nil
}

// RunsShow prints one run and, with --tracks, its track ids.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	var (
		run    *models.CrawlRun
		tracks []string
	)
	if err := r.withRuns(ctx, func(repo *repositories.CrawlRunRepository) (err error) {
		if run, err = repo.Get(id); err != nil {
			return err
		}
		if cmd.Bool("tracks") {
			tracks, err = repo.Tracks(id)
		}
		return err
	}); err != nil {
		return err
	}

	if cmd.Bool("json") {
		data, err := formatter.ToRunJSON(run)
		if err != nil {
			return err
		}
		if err := r.writeJSON(data); err != nil {
			return err
		}
	} else {
		fields := []ui.Field{
			{Label: "Sequence", Value: run.Sequence},
			{Label: "Deep lookup", Value: run.DeepLookup},
			{Label: "Categories", Value: run.Categories},
			{Label: "Skipped", Value: run.SkippedCategories},
			{Label: "Playlists", Value: run.Playlists},
			{Label: "Albums", Value: run.Albums},
			{Label: "Tracks", Value: run.TrackCount},
			{Label: "Started", Value: run.StartedAt.Local().Format(time.DateTime)},
			{Label: "Duration", Value: run.Duration().Round(time.Millisecond)},
		}
		if run.OutputFile != "" {
			fields = append(fields, ui.Field{Label: "Output", Value: run.OutputFile})
		}
		if err := r.writePlain("%s", r.styles.Summary("Run "+run.RunID, fields...)); err != nil {
			return err
		}
	}

	if !cmd.Bool("tracks") {
		return nil
	}
	return formatter.WriteIdentifiers(r.output, tracks)
}

// RunsDelete soft-deletes one run.
func (r *Runner) RunsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	if err := r.withRuns(ctx, func(repo *repositories.CrawlRunRepository) error {
		return repo.Delete(id)
	}); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return r.writePlain("%s deleted run %s\n", r.styles.OK("✓"), id)
}
