// Package services defines the [Catalog] interface for a paginated music catalog and implements it for Spotify.
//
// # Catalog Interface
//
// The crawler and the feature pipeline depend only on [Catalog], so both run against fakes in tests
// without network access. The interface carries the six lookups the system needs:
// categories, playlists per category, paged playlist tracks, album per track,
// tracks per album, and audio features per track.
//
// # Spotify Implementation
//
// [SpotifyService] wraps the zmb3/spotify client. It authenticates with the OAuth2
// client-credentials grant; the token source fetches and refreshes tokens on demand,
// so [SpotifyService.Authenticate] makes no request of its own.
//
// Playlist paging uses an offset cursor. [models.TrackPage.Next] holds the offset of the
// next page as a decimal string and is empty once the provider reports no next page.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrAuthFailed] : token endpoint rejected the credentials
//   - [shared.ErrCategoryUnavailable] : the API refused a category playlist listing
//   - [shared.ErrAPIRequest] : any other API error response
//   - [shared.ErrTrackNotFound] : no audio features for the requested track
//
// Wrapped errors keep the underlying [spotify.Error], so callers can still inspect the HTTP status.
package services
