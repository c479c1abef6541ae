package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cratedig/internal/formatter"
	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/services"
	"github.com/desertthunder/cratedig/internal/shared"
)

// Identifier file names written by a persisted crawl.
const (
	SmallOutputFile = "track_ids_small.txt"
	DeepOutputFile  = "track_ids_big.txt"
)

// CrawlOpts configures one crawl.
type CrawlOpts struct {
	DeepLookup        bool    // expand every track through its album
	Persist           bool    // write the final identifiers under OutputDir
	ShowProgress      bool    // send updates on the progress channel
	OutputDir         string  // default: data
	Workers           int     // concurrent catalog calls (default: 1)
	RequestsPerSecond float64 // client-side pacing, 0 disables
}

// CrawlResult holds everything one crawl discovered.
type CrawlResult struct {
	RunID             string
	Categories        []models.Category
	SkippedCategories []string
	Playlists         []models.URI // every playlist reference, duplicates kept
	TrackIDs          []string     // unique track ids found through playlists
	Albums            []models.URI // unique albums, deep lookup only
	DeepTrackIDs      []string     // unique album track ids, deep lookup only
	DeepLookup        bool
	OutputFile        string
	StartedAt         time.Time
	FinishedAt        time.Time
}

// Final returns the identifiers the crawl produced: the deep set in deep mode, else the playlist set.
func (r *CrawlResult) Final() []string {
	if r.DeepLookup {
		return r.DeepTrackIDs
	}
	return r.TrackIDs
}

// Run converts the result to its persisted form.
func (r *CrawlResult) Run() *models.CrawlRun {
	return &models.CrawlRun{
		RunID:             r.RunID,
		DeepLookup:        r.DeepLookup,
		Categories:        len(r.Categories),
		SkippedCategories: len(r.SkippedCategories),
		Playlists:         len(r.Playlists),
		Albums:            len(r.Albums),
		TrackCount:        len(r.Final()),
		OutputFile:        r.OutputFile,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
	}
}

// Crawler walks category → playlist → track, optionally expanding through albums.
type Crawler struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewCrawler creates a crawler over catalog.
func NewCrawler(catalog services.Catalog, logger *log.Logger) *Crawler {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Crawler{catalog: catalog, logger: logger}
}

// Configure hands credentials to the catalog. Missing credentials only log a warning.
func (c *Crawler) Configure(ctx context.Context, clientID, clientSecret string) error {
	return configure(ctx, c.catalog, c.logger, clientID, clientSecret)
}

// CheckAuth warns when the catalog has no credentials and reports whether it is ready.
func (c *Crawler) CheckAuth() bool {
	return checkAuth(c.catalog, c.logger)
}

// Run performs a full crawl.
func (c *Crawler) Run(ctx context.Context, progress chan<- ProgressUpdate, opts CrawlOpts) (*CrawlResult, error) {
	if c.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "data"
	}

	c.CheckAuth()

	result := &CrawlResult{RunID: shared.GenerateID(), DeepLookup: opts.DeepLookup, StartedAt: time.Now()}
	logger := shared.WithLogger(c.logger, "run", result.RunID)
	s := newSession(c.catalog, progress, opts.ShowProgress, opts.Workers, opts.RequestsPerSecond, logger)

	if err := c.discoverPlaylists(ctx, s, result); err != nil {
		return nil, err
	}

	trackIDs, err := c.playlistTracks(ctx, s, result.Playlists)
	if err != nil {
		return nil, err
	}
	result.TrackIDs = trackIDs
	logger.Info("unique track ids found", "tracks", len(trackIDs), "playlists", len(result.Playlists))

	if opts.DeepLookup {
		if err := c.deepLookup(ctx, s, result); err != nil {
			return nil, err
		}
		logger.Info("deep lookup finished", "albums", len(result.Albums), "tracks", len(result.DeepTrackIDs))
	}

	if opts.Persist {
		name := SmallOutputFile
		if opts.DeepLookup {
			name = DeepOutputFile
		}
		s.sendProgress(persistUpdate(len(result.Final()), name))
		path, err := formatter.WriteIdentifiersFile(filepath.Join(opts.OutputDir, name), result.Final())
		if err != nil {
			return nil, fmt.Errorf("failed to persist track ids: %w", err)
		}
		result.OutputFile = path
		logger.Info("saved track ids", "file", path)
	}

	result.FinishedAt = time.Now()
	logger.Info("crawl finished",
		"categories", len(result.Categories),
		"skipped", len(result.SkippedCategories),
		"playlists", len(result.Playlists),
		"tracks", len(result.Final()),
		"elapsed", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	)
	return result, nil
}

type categoryPlaylists struct {
	playlists []models.URI
	skipped   bool
}

// discoverPlaylists lists categories and collects their playlists in category order.
func (c *Crawler) discoverPlaylists(ctx context.Context, s *session, result *CrawlResult) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.sendProgress(categoriesUpdate())

	categories, err := c.catalog.Categories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	result.Categories = categories
	s.logger.Debug("fetched categories", "count", len(categories))

	total := len(categories)
	lists, err := fanOut(ctx, s.workers, total, func(ctx context.Context, i int) (categoryPlaylists, error) {
		cat := categories[i]
		if err := s.wait(ctx); err != nil {
			return categoryPlaylists{}, err
		}
		s.sendProgress(categoryPlaylistsUpdate(i+1, total, cat))

		uris, err := c.catalog.CategoryPlaylists(ctx, cat.ID)
		if errors.Is(err, shared.ErrCategoryUnavailable) {
			s.logger.Debug("skipping category", "category", cat.ID, "err", err)
			return categoryPlaylists{skipped: true}, nil
		}
		if err != nil {
			return categoryPlaylists{}, fmt.Errorf("failed to list playlists for category %s: %w", cat.ID, err)
		}

		normalized := make([]models.URI, 0, len(uris))
		for _, u := range uris {
			normalized = append(normalized, models.NewURI(models.KindPlaylist, u.ID()))
		}
		return categoryPlaylists{playlists: normalized}, nil
	})
	if err != nil {
		return err
	}

	for i, l := range lists {
		if l.skipped {
			result.SkippedCategories = append(result.SkippedCategories, categories[i].ID)
			continue
		}
		result.Playlists = append(result.Playlists, l.playlists...)
	}
	return nil
}

// playlistTracks pages through every playlist and returns the deduplicated track ids.
func (c *Crawler) playlistTracks(ctx context.Context, s *session, playlists []models.URI) ([]string, error) {
	total := len(playlists)
	perPlaylist, err := fanOut(ctx, s.workers, total, func(ctx context.Context, i int) ([]string, error) {
		s.sendProgress(playlistTracksUpdate(i+1, total, playlists[i]))
		return c.allPlaylistTracks(ctx, s, playlists[i])
	})
	if err != nil {
		return nil, err
	}
	return shared.Unique(flatten(perPlaylist)), nil
}

// allPlaylistTracks follows the page cursor until it is exhausted, then drops malformed entries.
func (c *Crawler) allPlaylistTracks(ctx context.Context, s *session, playlist models.URI) ([]string, error) {
	all := &models.TrackPage{}
	cursor := ""
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.catalog.PlaylistTracks(ctx, playlist, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list tracks of %s: %w", playlist, err)
		}
		all.Entries = append(all.Entries, page.Entries...)
		if page.Next == "" {
			break
		}
		cursor = page.Next
	}
	return all.TrackIDs(), nil
}

// deepLookup resolves the album of every track and collects every track on those albums.
func (c *Crawler) deepLookup(ctx context.Context, s *session, result *CrawlResult) error {
	tracks := result.TrackIDs
	total := len(tracks)
	albums, err := fanOut(ctx, s.workers, total, func(ctx context.Context, i int) (models.URI, error) {
		if err := s.wait(ctx); err != nil {
			return "", err
		}
		s.sendProgress(trackAlbumUpdate(i+1, total))
		album, err := c.catalog.TrackAlbum(ctx, tracks[i])
		if err != nil {
			return "", fmt.Errorf("failed to look up album of %s: %w", tracks[i], err)
		}
		return album, nil
	})
	if err != nil {
		return err
	}
	result.Albums = shared.Unique(albums)
	s.logger.Debug("unique albums found", "count", len(result.Albums))

	total = len(result.Albums)
	perAlbum, err := fanOut(ctx, s.workers, total, func(ctx context.Context, i int) ([]string, error) {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		album := result.Albums[i]
		s.sendProgress(albumTracksUpdate(i+1, total, album))
		ids, err := c.catalog.AlbumTracks(ctx, album)
		if err != nil {
			return nil, fmt.Errorf("failed to list tracks of %s: %w", album, err)
		}
		return ids, nil
	})
	if err != nil {
		return err
	}
	result.DeepTrackIDs = shared.Unique(flatten(perAlbum))
	return nil
}
