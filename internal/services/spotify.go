// Spotify Web API implementation of [Catalog]
package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/cratedig/internal/models"
	"github.com/desertthunder/cratedig/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	playlistPageSize = 100
	albumPageSize    = 50
	categoryPageSize = 50
)

// SpotifyService implements [Catalog] and [Authenticator] against the Spotify Web API.
type SpotifyService struct {
	credentials map[string]string
	httpClient  *http.Client
	client      *spotify.Client
}

// NewSpotifyService creates a new Spotify service with the given client credentials.
//
// Recognized keys: client_id, client_secret (required), token_url and base_url (optional overrides).
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	if err := validateCredentials(credentials); err != nil {
		return nil, err
	}
	return &SpotifyService{credentials: credentials, httpClient: http.DefaultClient}, nil
}

// WithHTTPClient sets the client used for both token and API requests.
func (s *SpotifyService) WithHTTPClient(c *http.Client) *SpotifyService {
	s.httpClient = c
	return s
}

func validateCredentials(credentials map[string]string) error {
	if credentials["client_id"] == "" {
		return fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if credentials["client_secret"] == "" {
		return fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}
	return nil
}

// Authenticate stores credentials and builds a client backed by a client-credentials token source.
// An empty map reuses the credentials given to [NewSpotifyService]; token_url and base_url
// carry over from them unless credentials sets its own.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if len(credentials) == 0 {
		credentials = s.credentials
	}
	credentials = maps.Clone(credentials)
	for _, key := range []string{"token_url", "base_url"} {
		if _, ok := credentials[key]; !ok && s.credentials[key] != "" {
			credentials[key] = s.credentials[key]
		}
	}
	if err := validateCredentials(credentials); err != nil {
		return err
	}
	s.credentials = credentials

	tokenURL := credentials["token_url"]
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	config := &clientcredentials.Config{
		ClientID:     credentials["client_id"],
		ClientSecret: credentials["client_secret"],
		TokenURL:     tokenURL,
	}

	// The token source outlives ctx: it refreshes on later calls.
	tokenCtx := context.WithoutCancel(ctx)
	if s.httpClient != nil {
		tokenCtx = context.WithValue(tokenCtx, oauth2.HTTPClient, s.httpClient)
	}

	var opts []spotify.ClientOption
	if base := credentials["base_url"]; base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, spotify.WithBaseURL(base))
	}

	s.client = spotify.New(config.Client(tokenCtx), opts...)
	return nil
}

func (s *SpotifyService) Authenticated() bool {
	return s.client != nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.client, nil
}

// Categories lists browse categories.
func (s *SpotifyService) Categories(ctx context.Context) ([]models.Category, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := c.GetCategories(ctx, spotify.Limit(categoryPageSize))
	if err != nil {
		return nil, wrapError("list categories", err)
	}

	categories := make([]models.Category, 0, len(page.Categories))
	for _, cat := range page.Categories {
		categories = append(categories, models.Category{ID: cat.ID, Name: cat.Name})
	}
	return categories, nil
}

// CategoryPlaylists lists the playlists of a category. API error responses mean the category
// cannot be browsed and are reported as [shared.ErrCategoryUnavailable].
func (s *SpotifyService) CategoryPlaylists(ctx context.Context, categoryID string) ([]models.URI, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := c.GetCategoryPlaylists(ctx, categoryID, spotify.Limit(categoryPageSize))
	if err != nil {
		if _, ok := apiError(err); ok {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrCategoryUnavailable, categoryID, err)
		}
		return nil, wrapError("list category playlists", err)
	}

	uris := make([]models.URI, 0, len(page.Playlists))
	for _, pl := range page.Playlists {
		if pl.ID == "" {
			continue
		}
		uris = append(uris, models.NewURI(models.KindPlaylist, string(pl.ID)))
	}
	return uris, nil
}

// PlaylistTracks returns one page of playlist items. Episodes and local files come back
// as entries without a usable track.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlist models.URI, cursor string) (*models.TrackPage, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	offset, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	page, err := c.GetPlaylistItems(ctx, spotify.ID(playlist.ID()), spotify.Limit(playlistPageSize), spotify.Offset(offset))
	if err != nil {
		return nil, wrapError("list playlist items", err)
	}

	result := &models.TrackPage{Entries: make([]models.PlaylistEntry, 0, len(page.Items))}
	for _, item := range page.Items {
		var entry models.PlaylistEntry
		if t := item.Track.Track; t != nil {
			entry.Track = &models.TrackRef{ID: string(t.ID), Name: t.Name}
		}
		result.Entries = append(result.Entries, entry)
	}

	if page.Next != "" && len(page.Items) > 0 {
		result.Next = strconv.Itoa(offset + len(page.Items))
	}
	return result, nil
}

// TrackAlbum returns the album URI of a track.
func (s *SpotifyService) TrackAlbum(ctx context.Context, trackID string) (models.URI, error) {
	c, err := s.api()
	if err != nil {
		return "", err
	}

	track, err := c.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return "", wrapError("get track", err)
	}

	if track.Album.URI != "" {
		return models.URI(track.Album.URI), nil
	}
	if track.Album.ID == "" {
		return "", fmt.Errorf("%w: track %s has no album", shared.ErrAPIRequest, trackID)
	}
	return models.NewURI(models.KindAlbum, string(track.Album.ID)), nil
}

// AlbumTracks returns every track id on an album, following album pages.
func (s *SpotifyService) AlbumTracks(ctx context.Context, album models.URI) ([]string, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	var ids []string
	offset := 0
	for {
		page, err := c.GetAlbumTracks(ctx, spotify.ID(album.ID()), spotify.Limit(albumPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, wrapError("list album tracks", err)
		}
		for _, t := range page.Tracks {
			if t.ID != "" {
				ids = append(ids, string(t.ID))
			}
		}
		if page.Next == "" || len(page.Tracks) == 0 {
			return ids, nil
		}
		offset += len(page.Tracks)
	}
}

// AudioFeatures fetches the feature vector of a single track.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackID string) (*models.FeatureVector, error) {
	c, err := s.api()
	if err != nil {
		return nil, err
	}

	features, err := c.GetAudioFeatures(ctx, spotify.ID(trackID))
	if err != nil {
		return nil, wrapError("get audio features", err)
	}
	if len(features) == 0 || features[0] == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}

	return toFeatureVector(features[0]), nil
}

func toFeatureVector(af *spotify.AudioFeatures) *models.FeatureVector {
	return &models.FeatureVector{
		Danceability:     float64(af.Danceability),
		Energy:           float64(af.Energy),
		Key:              int(af.Key),
		Loudness:         float64(af.Loudness),
		Mode:             int(af.Mode),
		Speechiness:      float64(af.Speechiness),
		Acousticness:     float64(af.Acousticness),
		Instrumentalness: float64(af.Instrumentalness),
		Liveness:         float64(af.Liveness),
		Valence:          float64(af.Valence),
		Tempo:            float64(af.Tempo),
		DurationMS:       int(af.Duration),
		TimeSignature:    int(af.TimeSignature),
		Type:             "audio_features",
		ID:               string(af.ID),
		URI:              string(af.URI),
		TrackHref:        af.TrackURL,
		AnalysisURL:      af.AnalysisURL,
	}
}

func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: bad cursor %q", shared.ErrInvalidArgument, cursor)
	}
	return offset, nil
}

// apiError extracts the error body returned by the Web API.
func apiError(err error) (spotify.Error, bool) {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var ptr *spotify.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return spotify.Error{}, false
}

func wrapError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &retrieveErr):
		return fmt.Errorf("%s: %w: %w", op, shared.ErrAuthFailed, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	if apiErr, ok := apiError(err); ok {
		return fmt.Errorf("%s: %w (status %d): %w", op, shared.ErrAPIRequest, apiErr.Status, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
