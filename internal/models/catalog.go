package models

import (
	"fmt"
	"strings"
)

// Resource kinds used in [URI] values.
const (
	KindPlaylist = "playlist"
	KindAlbum    = "album"
	KindTrack    = "track"
)

// URI is a Spotify resource reference, e.g. "spotify:playlist:37i9dQZF1DX0XUsuxWHRQd".
type URI string

// NewURI builds a URI of the given kind. An id that is already a URI is returned unchanged.
func NewURI(kind, id string) URI {
	if strings.HasPrefix(id, "spotify:") {
		return URI(id)
	}
	return URI("spotify:" + kind + ":" + id)
}

// ID returns the last segment of the URI, or the whole value when it has no prefix.
func (u URI) ID() string {
	s := string(u)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Kind returns the resource kind ("playlist", "album", ...) or "" for a bare id.
func (u URI) Kind() string {
	parts := strings.Split(string(u), ":")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

func (u URI) String() string { return string(u) }

// Category is a browse category.
type Category struct {
	ID   string
	Name string
}

// TrackRef is the track payload of a playlist entry.
type TrackRef struct {
	ID   string
	Name string
}

// PlaylistEntry is one item of a playlist page. Track is nil for entries whose payload
// is missing (removed or local tracks).
type PlaylistEntry struct {
	Track *TrackRef
}

// TrackPage is one page of a playlist's entries. Next is the cursor for the following
// page and is empty once the listing is exhausted.
type TrackPage struct {
	Entries []PlaylistEntry
	Next    string
}

// TrackIDs returns the ids of well-formed entries, dropping null payloads and empty ids.
func (p *TrackPage) TrackIDs() []string {
	ids := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.Track == nil || e.Track.ID == "" {
			continue
		}
		ids = append(ids, e.Track.ID)
	}
	return ids
}

// NumericFeatures lists the numeric columns of a [FeatureVector] in table order.
var NumericFeatures = []string{
	"danceability",
	"energy",
	"key",
	"loudness",
	"mode",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
	"valence",
	"tempo",
	"duration_ms",
	"time_signature",
}

// TextFeatures lists the non-numeric columns of a [FeatureVector] in table order.
var TextFeatures = []string{
	"type",
	"id",
	"uri",
	"track_href",
	"analysis_url",
}

// FeatureVector is the audio feature record of one track.
type FeatureVector struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMS       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`

	Type        string `json:"type"`
	ID          string `json:"id"`
	URI         string `json:"uri"`
	TrackHref   string `json:"track_href"`
	AnalysisURL string `json:"analysis_url"`
}

// FeatureVectorFrom rebuilds a vector from values laid out like [FeatureVector.Numeric] and [FeatureVector.Text].
func FeatureVectorFrom(numeric []float64, text []string) (*FeatureVector, error) {
	if len(numeric) != len(NumericFeatures) || len(text) != len(TextFeatures) {
		return nil, fmt.Errorf("expected %d numeric and %d text values, got %d and %d",
			len(NumericFeatures), len(TextFeatures), len(numeric), len(text))
	}
	return &FeatureVector{
		Danceability:     numeric[0],
		Energy:           numeric[1],
		Key:              int(numeric[2]),
		Loudness:         numeric[3],
		Mode:             int(numeric[4]),
		Speechiness:      numeric[5],
		Acousticness:     numeric[6],
		Instrumentalness: numeric[7],
		Liveness:         numeric[8],
		Valence:          numeric[9],
		Tempo:            numeric[10],
		DurationMS:       int(numeric[11]),
		TimeSignature:    int(numeric[12]),
		Type:             text[0],
		ID:               text[1],
		URI:              text[2],
		TrackHref:        text[3],
		AnalysisURL:      text[4],
	}, nil
}

// Numeric returns the numeric columns in [NumericFeatures] order.
func (f *FeatureVector) Numeric() []float64 {
	return []float64{
		f.Danceability,
		f.Energy,
		float64(f.Key),
		f.Loudness,
		float64(f.Mode),
		f.Speechiness,
		f.Acousticness,
		f.Instrumentalness,
		f.Liveness,
		f.Valence,
		f.Tempo,
		float64(f.DurationMS),
		float64(f.TimeSignature),
	}
}

// Text returns the text columns in [TextFeatures] order.
func (f *FeatureVector) Text() []string {
	return []string{f.Type, f.ID, f.URI, f.TrackHref, f.AnalysisURL}
}

// Validate only checks that the vector names a track; feature values are taken as returned.
func (f *FeatureVector) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("feature vector has no track id")
	}
	return nil
}
