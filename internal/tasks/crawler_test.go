package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"testing"

	"github.com/desertthunder/cratedig/internal/features"
	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/shared"
	th "github.com/desertthunder/cratedig/internal/testing"
)

func playlist(id string) models.URI {
	return models.NewURI(models.KindPlaylist, id)
}

func album(id string) models.URI {
	return models.NewURI(models.KindAlbum, id)
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

// largeCatalog builds a catalog with enough fan-out to exercise concurrent runs.
func largeCatalog() *th.FakeCatalog {
	fake := &th.FakeCatalog{
		Playlists:     map[string][]models.URI{},
		CategoryErrs:  map[string]error{},
		Pages:         map[models.URI][][]models.PlaylistEntry{},
		Albums:        map[string]models.URI{},
		AlbumTrackIDs: map[models.URI][]string{},
	}
	for c := 0; c < 6; c++ {
		catID := fmt.Sprintf("c%d", c)
		fake.CategoryList = append(fake.CategoryList, models.Category{ID: catID})
		if c == 4 {
			fake.CategoryErrs[catID] = fmt.Errorf("%w: %s", shared.ErrCategoryUnavailable, catID)
			continue
		}
		for p := 0; p < 4; p++ {
			pl := playlist(fmt.Sprintf("p%d", (c*4+p)%15))
			fake.Playlists[catID] = append(fake.Playlists[catID], pl)
			if _, ok := fake.Pages[pl]; ok {
				continue
			}
			var pages [][]models.PlaylistEntry
			for pg := 0; pg < 3; pg++ {
				var ids []string
				for k := 0; k < 4; k++ {
					ids = append(ids, fmt.Sprintf("t%d", (c*31+p*7+pg*5+k)%60))
				}
				pages = append(pages, th.Entries(ids...))
			}
			fake.Pages[pl] = pages
		}
	}
	for i := 0; i < 60; i++ {
		a := album(fmt.Sprintf("a%d", i%20))
		fake.Albums[fmt.Sprintf("t%d", i)] = a
		fake.AlbumTrackIDs[a] = []string{fmt.Sprintf("t%d", i%20), fmt.Sprintf("x%d", i%20), fmt.Sprintf("y%d", i%20), fmt.Sprintf("z%d", i%20)}
	}
	return fake
}

func TestCrawler_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("Deduplicates Across Playlists", func(t *testing.T) {
		fake := &th.FakeCatalog{
			CategoryList: []models.Category{{ID: "c1"}, {ID: "c2"}},
			Playlists: map[string][]models.URI{
				"c1": {playlist("p1"), playlist("p2")},
				"c2": {playlist("p2"), playlist("p3")},
			},
			Pages: map[models.URI][][]models.PlaylistEntry{
				playlist("p1"): {th.Entries("t1", "t2", "t1")},
				playlist("p2"): {th.Entries("t2", "t3")},
				playlist("p3"): {th.Entries("t3", "t4", "t1")},
			},
		}

		result, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"t1", "t2", "t3", "t4"}
		if !slices.Equal(result.TrackIDs, want) {
			t.Errorf("expected %v in first-seen order, got %v", want, result.TrackIDs)
		}
		if !slices.Equal(result.Final(), want) {
			t.Errorf("expected Final to return playlist tracks, got %v", result.Final())
		}
		if len(result.Playlists) != 4 {
			t.Errorf("expected playlist references to keep duplicates (4), got %d", len(result.Playlists))
		}
		if fake.PlaylistCalls(playlist("p2")) != 2 {
			t.Errorf("expected duplicate playlist to be read twice, got %d", fake.PlaylistCalls(playlist("p2")))
		}
		if result.RunID == "" {
			t.Error("expected a run id")
		}
		if result.FinishedAt.Before(result.StartedAt) {
			t.Error("expected finish time after start time")
		}
	})

	t.Run("Skips Unavailable Category", func(t *testing.T) {
		fake := &th.FakeCatalog{
			CategoryList: []models.Category{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}},
			Playlists: map[string][]models.URI{
				"c1": {playlist("p1")},
				"c2": {playlist("p2")},
				"c3": {playlist("p3")},
			},
			CategoryErrs: map[string]error{
				"c2": fmt.Errorf("%w: c2", shared.ErrCategoryUnavailable),
			},
			Pages: map[models.URI][][]models.PlaylistEntry{
				playlist("p1"): {th.Entries("t1")},
				playlist("p2"): {th.Entries("t2")},
				playlist("p3"): {th.Entries("t3")},
			},
		}

		result, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(result.TrackIDs, []string{"t1", "t3"}) {
			t.Errorf("expected [t1 t3], got %v", result.TrackIDs)
		}
		if !slices.Equal(result.SkippedCategories, []string{"c2"}) {
			t.Errorf("expected c2 skipped, got %v", result.SkippedCategories)
		}
		if fake.PlaylistCalls(playlist("p2")) != 0 {
			t.Error("expected no reads of the skipped category's playlists")
		}
	})

	t.Run("Drops Malformed Entries", func(t *testing.T) {
		fake := &th.FakeCatalog{
			CategoryList: []models.Category{{ID: "c1"}},
			Playlists:    map[string][]models.URI{"c1": {playlist("p1")}},
			Pages: map[models.URI][][]models.PlaylistEntry{
				playlist("p1"): {{
					{Track: &models.TrackRef{ID: "good"}},
					{Track: nil},
					{Track: &models.TrackRef{ID: ""}},
				}},
			},
		}

		result, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(result.TrackIDs, []string{"good"}) {
			t.Errorf("expected only [good], got %v", result.TrackIDs)
		}
	})

	t.Run("Follows Pagination", func(t *testing.T) {
		fake := &th.FakeCatalog{
			CategoryList: []models.Category{{ID: "c1"}},
			Playlists:    map[string][]models.URI{"c1": {playlist("p1")}},
			Pages: map[models.URI][][]models.PlaylistEntry{
				playlist("p1"): {
					th.Entries("t1", "t2"),
					{{Track: nil}, {Track: &models.TrackRef{ID: "t3"}}},
				},
			},
		}

		result, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := fake.PlaylistCalls(playlist("p1")); got != 2 {
			t.Errorf("expected exactly 2 page requests, got %d", got)
		}
		if !slices.Equal(result.TrackIDs, []string{"t1", "t2", "t3"}) {
			t.Errorf("expected tracks from both pages, got %v", result.TrackIDs)
		}
	})

	t.Run("Deep Lookup Reaches Album Tracks", func(t *testing.T) {
		fake := &th.FakeCatalog{
			CategoryList:  []models.Category{{ID: "c1"}},
			Playlists:     map[string][]models.URI{"c1": {playlist("p1")}},
			Pages:         map[models.URI][][]models.PlaylistEntry{playlist("p1"): {th.Entries("t1")}},
			Albums:        map[string]models.URI{"t1": album("a1")},
			AlbumTrackIDs: map[models.URI][]string{album("a1"): {"t1", "t2"}},
		}

		result, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{DeepLookup: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Contains(result.DeepTrackIDs, "t2") {
			t.Errorf("expected deep lookup to find t2, got %v", result.DeepTrackIDs)
		}
		if !slices.Equal(result.Final(), result.DeepTrackIDs) {
			t.Error("expected Final to return the deep set")
		}
		if !slices.Equal(result.TrackIDs, []string{"t1"}) {
			t.Errorf("expected playlist set to stay [t1], got %v", result.TrackIDs)
		}
		if fake.Calls("track_album") != 1 || fake.Calls("album_tracks") != 1 {
			t.Errorf("expected one album lookup and one album listing, got %d and %d",
				fake.Calls("track_album"), fake.Calls("album_tracks"))
		}
	})

	t.Run("Deep Lookup Deduplicates Albums", func(t *testing.T) {
		fake := &th.FakeCatalog{
			CategoryList:  []models.Category{{ID: "c1"}},
			Playlists:     map[string][]models.URI{"c1": {playlist("p1")}},
			Pages:         map[models.URI][][]models.PlaylistEntry{playlist("p1"): {th.Entries("t1", "t2", "t3")}},
			Albums:        map[string]models.URI{"t1": album("a1"), "t2": album("a1"), "t3": album("a2")},
			AlbumTrackIDs: map[models.URI][]string{album("a1"): {"t1", "t2"}, album("a2"): {"t3", "t2", "t9"}},
		}

		result, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{DeepLookup: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Albums) != 2 || fake.Calls("album_tracks") != 2 {
			t.Errorf("expected 2 unique albums listed once each, got %v and %d calls", result.Albums, fake.Calls("album_tracks"))
		}
		if !slices.Equal(result.DeepTrackIDs, []string{"t1", "t2", "t3", "t9"}) {
			t.Errorf("unexpected deep set %v", result.DeepTrackIDs)
		}
	})

	t.Run("Errors Propagate", func(t *testing.T) {
		boom := errors.New("connection reset")

		tests := []struct {
			name string
			fake *th.FakeCatalog
			opts CrawlOpts
		}{
			{
				name: "categories",
				fake: &th.FakeCatalog{CategoriesErr: boom},
			},
			{
				name: "category playlists",
				fake: &th.FakeCatalog{
					CategoryList: []models.Category{{ID: "c1"}},
					CategoryErrs: map[string]error{"c1": boom},
				},
			},
			{
				name: "playlist tracks",
				fake: &th.FakeCatalog{
					CategoryList: []models.Category{{ID: "c1"}},
					Playlists:    map[string][]models.URI{"c1": {playlist("p1")}},
					PlaylistErrs: map[models.URI]error{playlist("p1"): boom},
				},
			},
			{
				name: "track album",
				fake: &th.FakeCatalog{
					CategoryList: []models.Category{{ID: "c1"}},
					Playlists:    map[string][]models.URI{"c1": {playlist("p1")}},
					Pages:        map[models.URI][][]models.PlaylistEntry{playlist("p1"): {th.Entries("t1")}},
				},
				opts: CrawlOpts{DeepLookup: true},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, err := NewCrawler(tt.fake, nil).Run(ctx, nil, tt.opts)
				if err == nil {
					t.Fatal("expected error")
				}
				if result != nil {
					t.Error("expected no result on error")
				}
				if tt.name != "track album" && !errors.Is(err, boom) {
					t.Errorf("expected wrapped cause, got %v", err)
				}
				if tt.name == "track album" && !errors.Is(err, shared.ErrTrackNotFound) {
					t.Errorf("expected ErrTrackNotFound, got %v", err)
				}
			})
		}
	})

	t.Run("Playlist Error Stops Later Calls", func(t *testing.T) {
		fake := &th.FakeCatalog{
			CategoryList: []models.Category{{ID: "c1"}},
			Playlists:    map[string][]models.URI{"c1": {playlist("p1"), playlist("p2"), playlist("p3")}},
			PlaylistErrs: map[models.URI]error{playlist("p1"): errors.New("boom")},
			Pages: map[models.URI][][]models.PlaylistEntry{
				playlist("p2"): {th.Entries("t2")},
				playlist("p3"): {th.Entries("t3")},
			},
		}

		if _, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{Workers: 1}); err == nil {
			t.Fatal("expected error")
		}
		if fake.PlaylistCalls(playlist("p2"))+fake.PlaylistCalls(playlist("p3")) != 0 {
			t.Error("expected a sequential crawl to stop at the first failure")
		}
	})

	t.Run("Concurrent Matches Sequential", func(t *testing.T) {
		sequential, err := NewCrawler(largeCatalog(), nil).Run(ctx, nil, CrawlOpts{DeepLookup: true, Workers: 1})
		if err != nil {
			t.Fatalf("sequential run failed: %v", err)
		}

		for _, workers := range []int{2, 8} {
			t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
				concurrent, err := NewCrawler(largeCatalog(), nil).Run(ctx, nil, CrawlOpts{DeepLookup: true, Workers: workers})
				if err != nil {
					t.Fatalf("concurrent run failed: %v", err)
				}
				if !slices.Equal(concurrent.Playlists, sequential.Playlists) {
					t.Error("playlist references differ")
				}
				if !slices.Equal(concurrent.TrackIDs, sequential.TrackIDs) {
					t.Errorf("track ids differ:\n%v\n%v", concurrent.TrackIDs, sequential.TrackIDs)
				}
				if !slices.Equal(concurrent.Albums, sequential.Albums) {
					t.Error("albums differ")
				}
				if !slices.Equal(concurrent.DeepTrackIDs, sequential.DeepTrackIDs) {
					t.Error("deep track ids differ")
				}
				if !slices.Equal(concurrent.SkippedCategories, []string{"c4"}) {
					t.Errorf("expected c4 skipped, got %v", concurrent.SkippedCategories)
				}
			})
		}

		if len(sequential.TrackIDs) != len(shared.Unique(sequential.TrackIDs)) {
			t.Error("expected no duplicate track ids")
		}
		if len(sequential.DeepTrackIDs) <= len(sequential.TrackIDs) {
			t.Errorf("expected deep set to grow, got %d vs %d", len(sequential.DeepTrackIDs), len(sequential.TrackIDs))
		}
	})

	t.Run("Paced Run", func(t *testing.T) {
		result, err := NewCrawler(largeCatalog(), nil).Run(ctx, nil, CrawlOpts{Workers: 4, RequestsPerSecond: 10000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.TrackIDs) == 0 {
			t.Error("expected tracks from paced run")
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewCrawler(largeCatalog(), nil).Run(cctx, nil, CrawlOpts{})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Nil Catalog", func(t *testing.T) {
		_, err := NewCrawler(nil, nil).Run(ctx, nil, CrawlOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestCrawler_Persist(t *testing.T) {
	ctx := context.Background()
	newFake := func() *th.FakeCatalog {
		return &th.FakeCatalog{
			CategoryList:  []models.Category{{ID: "c1"}},
			Playlists:     map[string][]models.URI{"c1": {playlist("p1")}},
			Pages:         map[models.URI][][]models.PlaylistEntry{playlist("p1"): {th.Entries("t1", "t3")}},
			Albums:        map[string]models.URI{"t1": album("a1"), "t3": album("a1")},
			AlbumTrackIDs: map[models.URI][]string{album("a1"): {"t1", "t2", "t3"}},
		}
	}

	t.Run("Small Set", func(t *testing.T) {
		dir := t.TempDir()
		result, err := NewCrawler(newFake(), nil).Run(ctx, nil, CrawlOpts{Persist: true, OutputDir: dir})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		path := filepath.Join(dir, SmallOutputFile)
		if result.OutputFile != path {
			t.Errorf("expected output file %s, got %s", path, result.OutputFile)
		}
		th.AssertFileNotExists(t, filepath.Join(dir, DeepOutputFile))

		ids, err := features.LoadIdentifiersFile(path)
		if err != nil {
			t.Fatalf("failed to read identifiers: %v", err)
		}
		if !slices.Equal(ids, []string{"t1", "t3"}) {
			t.Errorf("expected [t1 t3], got %v", ids)
		}
	})

	t.Run("Deep Set", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		result, err := NewCrawler(newFake(), nil).Run(ctx, nil, CrawlOpts{DeepLookup: true, Persist: true, OutputDir: dir})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		path := filepath.Join(dir, DeepOutputFile)
		if result.OutputFile != path {
			t.Errorf("expected output file %s, got %s", path, result.OutputFile)
		}
		th.AssertFileNotExists(t, filepath.Join(dir, SmallOutputFile))

		ids, err := features.LoadIdentifiersFile(path)
		if err != nil {
			t.Fatalf("failed to read identifiers: %v", err)
		}
		if !slices.Equal(sorted(ids), []string{"t1", "t2", "t3"}) {
			t.Errorf("expected the deep set in the big file, got %v", ids)
		}
	})

	t.Run("No Persist", func(t *testing.T) {
		dir := t.TempDir()
		result, err := NewCrawler(newFake(), nil).Run(ctx, nil, CrawlOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.OutputFile != "" {
			t.Errorf("expected no output file, got %s", result.OutputFile)
		}
		th.AssertFileNotExists(t, filepath.Join(dir, SmallOutputFile))
	})

	t.Run("Run Record", func(t *testing.T) {
		result, err := NewCrawler(newFake(), nil).Run(ctx, nil, CrawlOpts{DeepLookup: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		run := result.Run()
		if run.RunID != result.RunID || run.TrackCount != 3 || run.Albums != 1 || run.Playlists != 1 || !run.DeepLookup {
			t.Errorf("unexpected run record %+v", run)
		}
		if err := run.Validate(); err != nil {
			t.Errorf("expected valid run record, got %v", err)
		}
	})
}

func TestCrawler_Progress(t *testing.T) {
	ctx := context.Background()
	fake := &th.FakeCatalog{
		CategoryList: []models.Category{{ID: "c1"}},
		Playlists:    map[string][]models.URI{"c1": {playlist("p1")}},
		Pages:        map[models.URI][][]models.PlaylistEntry{playlist("p1"): {th.Entries("t1")}},
	}

	t.Run("Suppressed", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 100)
		if _, err := NewCrawler(fake, nil).Run(ctx, progress, CrawlOpts{ShowProgress: false}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(progress) != 0 {
			t.Errorf("expected no updates, got %d", len(progress))
		}
	})

	t.Run("Reported", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 100)
		if _, err := NewCrawler(fake, nil).Run(ctx, progress, CrawlOpts{ShowProgress: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{FetchCategories, FetchPlaylists, FetchTracks}
		if !slices.Equal(phases, want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
	})

	t.Run("Full Channel Does Not Block", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		if _, err := NewCrawler(fake, nil).Run(ctx, progress, CrawlOpts{ShowProgress: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCrawler_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Credentials Warn Only", func(t *testing.T) {
		fake := &th.FakeCatalog{}
		c := NewCrawler(fake, nil)
		if err := c.Configure(ctx, "", ""); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if c.CheckAuth() {
			t.Error("expected CheckAuth to report missing credentials")
		}
	})

	t.Run("Authenticates", func(t *testing.T) {
		fake := &th.FakeCatalog{}
		c := NewCrawler(fake, nil)
		if err := c.Configure(ctx, "id", "secret"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !c.CheckAuth() {
			t.Error("expected CheckAuth to pass after Configure")
		}
	})

	t.Run("Authentication Failure", func(t *testing.T) {
		fake := &th.FakeCatalog{AuthErr: errors.New("rejected")}
		err := NewCrawler(fake, nil).Configure(ctx, "id", "secret")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Crawl Without Credentials Still Runs", func(t *testing.T) {
		fake := &th.FakeCatalog{CategoryList: []models.Category{{ID: "c1"}}}
		result, err := NewCrawler(fake, nil).Run(ctx, nil, CrawlOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.TrackIDs) != 0 {
			t.Errorf("expected no tracks, got %v", result.TrackIDs)
		}
	})
}
