// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/shared"
)

// FakeCatalog is an in-memory [services.Catalog] with canned responses and call counters.
//
// Playlist pages are indexed by cursor: "" is page 0, and Next points at the following index.
// Safe for concurrent use.
type FakeCatalog struct {
	CategoryList  []models.Category
	CategoriesErr error
	Playlists     map[string][]models.URI
	CategoryErrs  map[string]error
	Pages         map[models.URI][][]models.PlaylistEntry
	PlaylistErrs  map[models.URI]error
	Albums        map[string]models.URI
	AlbumTrackIDs map[models.URI][]string
	Features      map[string]*models.FeatureVector
	AuthErr       error

	mu            sync.Mutex
	calls         map[string]int
	playlistCalls map[models.URI]int
	authenticated bool
}

func (f *FakeCatalog) record(op string, playlist models.URI) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
		f.playlistCalls = make(map[models.URI]int)
	}
	f.calls[op]++
	if playlist != "" {
		f.playlistCalls[playlist]++
	}
}

// Calls returns how many times op ("categories", "category_playlists", "playlist_tracks",
// "track_album", "album_tracks", "audio_features") was called.
func (f *FakeCatalog) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// PlaylistCalls returns how many pages of one playlist were requested.
func (f *FakeCatalog) PlaylistCalls(playlist models.URI) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playlistCalls[playlist]
}

func (f *FakeCatalog) Authenticate(ctx context.Context, credentials map[string]string) error {
	if f.AuthErr != nil {
		return f.AuthErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = true
	return nil
}

func (f *FakeCatalog) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *FakeCatalog) Categories(ctx context.Context) ([]models.Category, error) {
	f.record("categories", "")
	if f.CategoriesErr != nil {
		return nil, f.CategoriesErr
	}
	return f.CategoryList, nil
}

func (f *FakeCatalog) CategoryPlaylists(ctx context.Context, categoryID string) ([]models.URI, error) {
	f.record("category_playlists", "")
	if err, ok := f.CategoryErrs[categoryID]; ok {
		return nil, err
	}
	return f.Playlists[categoryID], nil
}

func (f *FakeCatalog) PlaylistTracks(ctx context.Context, playlist models.URI, cursor string) (*models.TrackPage, error) {
	f.record("playlist_tracks", playlist)
	if err, ok := f.PlaylistErrs[playlist]; ok {
		return nil, err
	}

	pages := f.Pages[playlist]
	idx := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: bad cursor %q", shared.ErrInvalidArgument, cursor)
		}
		idx = n
	}
	if idx >= len(pages) {
		return &models.TrackPage{}, nil
	}

	page := &models.TrackPage{Entries: pages[idx]}
	if idx+1 < len(pages) {
		page.Next = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func (f *FakeCatalog) TrackAlbum(ctx context.Context, trackID string) (models.URI, error) {
	f.record("track_album", "")
	album, ok := f.Albums[trackID]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	return album, nil
}

func (f *FakeCatalog) AlbumTracks(ctx context.Context, album models.URI) ([]string, error) {
	f.record("album_tracks", "")
	return f.AlbumTrackIDs[album], nil
}

func (f *FakeCatalog) AudioFeatures(ctx context.Context, trackID string) (*models.FeatureVector, error) {
	f.record("audio_features", "")
	fv, ok := f.Features[trackID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	return fv, nil
}

// Entries builds playlist entries for the given track ids.
func Entries(ids ...string) []models.PlaylistEntry {
	entries := make([]models.PlaylistEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, models.PlaylistEntry{Track: &models.TrackRef{ID: id}})
	}
	return entries
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
