package tasks

import (
	"fmt"

	"github.com/desertthunder/cratedig/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display. Message carries no step counter.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchCategories Phase = iota
	FetchPlaylists
	FetchTracks
	FetchAlbums
	FetchAlbumTracks
	FetchFeatures
	Persist
)

func (p Phase) String() string {
	switch p {
	case FetchCategories:
		return "fetch_categories"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case FetchAlbums:
		return "fetch_albums"
	case FetchAlbumTracks:
		return "fetch_album_tracks"
	case FetchFeatures:
		return "fetch_features"
	case Persist:
		return "persist"
	default:
		return ""
	}
}

func categoriesUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCategories,
		Step:    1,
		Total:   1,
		Message: "Fetching categories...",
	}
}

func categoryPlaylistsUpdate(step, total int, cat models.Category) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    step,
		Total:   total,
		Message: "Listing playlists in " + cat.ID,
	}
}

func playlistTracksUpdate(step, total int, playlist models.URI) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Reading %s", playlist),
	}
}

func trackAlbumUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAlbums,
		Step:    step,
		Total:   total,
		Message: "Resolving albums...",
	}
}

func albumTracksUpdate(step, total int, album models.URI) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAlbumTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Reading %s", album),
	}
}

func featuresUpdate(step, total int, trackID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    step,
		Total:   total,
		Message: "Features for " + trackID,
	}
}

func persistUpdate(count int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Persist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saving %d track ids to %s", count, name),
	}
}
