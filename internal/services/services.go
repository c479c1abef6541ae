// package services defines the catalog query interface the crawler and feature pipeline run against.
package services

import (
	"context"

	"github.com/desertthunder/cratedig/internal/models"
)

// Catalog is the paginated catalog query service.
//
// Implementations return plain values from [models]; callers never see provider types.
type Catalog interface {
	// Categories lists every browse category in one unpaged call.
	Categories(ctx context.Context) ([]models.Category, error)

	// CategoryPlaylists lists the playlists of one category as playlist URIs.
	// A category the provider refuses to list fails with [shared.ErrCategoryUnavailable].
	CategoryPlaylists(ctx context.Context, categoryID string) ([]models.URI, error)

	// PlaylistTracks returns one page of playlist entries starting at cursor.
	// The empty cursor requests the first page.
	PlaylistTracks(ctx context.Context, playlist models.URI, cursor string) (*models.TrackPage, error)

	// TrackAlbum returns the album URI of a track.
	TrackAlbum(ctx context.Context, trackID string) (models.URI, error)

	// AlbumTracks returns the track ids of an album.
	AlbumTracks(ctx context.Context, album models.URI) ([]string, error)

	// AudioFeatures returns the feature vector of one track.
	AudioFeatures(ctx context.Context, trackID string) (*models.FeatureVector, error)
}

// Authenticator is implemented by catalogs that need credentials before the first call.
type Authenticator interface {
	// Authenticate stores credentials and builds an authenticated handle.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Authenticated reports whether a handle has been built.
	Authenticated() bool
}
