package media

import (
	"strconv"
	"strings"
)

// Metadata carries the descriptive fields of a media entity. One struct
// covers all media types; type-specific fields are ignored by the detail
// tables that do not use them.
type Metadata struct {
	Title         string
	OriginalTitle string
	Overview      string
	Year          int
	Genres        []string
	Languages     []string
	Countries     []string
	Director      string
	RuntimeMin    int

	// Television
	Series  string
	Season  int
	Episode int

	// Music and podcasts
	Artist string
	Album  string
	Show   string
	Track  int

	// Personal media
	DeviceMake  string
	DeviceModel string
	AlbumName   string
	Persons     []string
}

// IsZero reports whether no identifying or descriptive field carries a value.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Year == 0 && m.Overview == "" &&
		m.Series == "" && m.Artist == "" && m.Show == "" && m.DeviceMake == "" &&
		len(m.Genres) == 0 && len(m.Persons) == 0
}

// Merge combines metadata layers in priority order: the first layer that
// sets a field wins. Callers pass layers as caller-supplied, catalog-search,
// then extracted, which implements the identifier precedence rule.
func Merge(layers ...Metadata) Metadata {
	var out Metadata
	for _, layer := range layers {
		if out.Title == "" {
			out.Title = layer.Title
		}
		if out.OriginalTitle == "" {
			out.OriginalTitle = layer.OriginalTitle
		}
		if out.Overview == "" {
			out.Overview = layer.Overview
		}
		if out.Year == 0 {
			out.Year = layer.Year
		}
		if len(out.Genres) == 0 {
			out.Genres = layer.Genres
		}
		if len(out.Languages) == 0 {
			out.Languages = layer.Languages
		}
		if len(out.Countries) == 0 {
			out.Countries = layer.Countries
		}
		if out.Director == "" {
			out.Director = layer.Director
		}
		if out.RuntimeMin == 0 {
			out.RuntimeMin = layer.RuntimeMin
		}
		if out.Series == "" {
			out.Series = layer.Series
		}
		if out.Season == 0 {
			out.Season = layer.Season
		}
		if out.Episode == 0 {
			out.Episode = layer.Episode
		}
		if out.Artist == "" {
			out.Artist = layer.Artist
		}
		if out.Album == "" {
			out.Album = layer.Album
		}
		if out.Show == "" {
			out.Show = layer.Show
		}
		if out.Track == 0 {
			out.Track = layer.Track
		}
		if out.DeviceMake == "" {
			out.DeviceMake = layer.DeviceMake
		}
		if out.DeviceModel == "" {
			out.DeviceModel = layer.DeviceModel
		}
		if out.AlbumName == "" {
			out.AlbumName = layer.AlbumName
		}
		if len(out.Persons) == 0 {
			out.Persons = layer.Persons
		}
	}
	return out
}

// ApplyEnrichment folds provider-enriched metadata into base. Descriptive
// fields are overwritten when the enrichment sets them; identifier fields
// (title, year, series/season/episode, artist/album) are only filled when
// the base left them empty.
func ApplyEnrichment(base, enrichment Metadata) Metadata {
	out := base

	if enrichment.Overview != "" {
		out.Overview = enrichment.Overview
	}
	if enrichment.OriginalTitle != "" {
		out.OriginalTitle = enrichment.OriginalTitle
	}
	if len(enrichment.Genres) > 0 {
		out.Genres = enrichment.Genres
	}
	if len(enrichment.Languages) > 0 {
		out.Languages = enrichment.Languages
	}
	if len(enrichment.Countries) > 0 {
		out.Countries = enrichment.Countries
	}
	if enrichment.Director != "" {
		out.Director = enrichment.Director
	}
	if enrichment.RuntimeMin > 0 {
		out.RuntimeMin = enrichment.RuntimeMin
	}

	if out.Title == "" {
		out.Title = enrichment.Title
	}
	if out.Year == 0 {
		out.Year = enrichment.Year
	}
	if out.Series == "" {
		out.Series = enrichment.Series
	}
	if out.Season == 0 {
		out.Season = enrichment.Season
	}
	if out.Episode == 0 {
		out.Episode = enrichment.Episode
	}
	if out.Artist == "" {
		out.Artist = enrichment.Artist
	}
	if out.Album == "" {
		out.Album = enrichment.Album
	}
	return out
}

// TextBlob flattens the metadata into the text payload handed to the
// embedder for catalog media.
func (m Metadata) TextBlob(fallback string) string {
	parts := make([]string, 0, 6)
	title := m.Title
	if title == "" {
		title = fallback
	}
	if title != "" {
		parts = append(parts, title)
	}
	if m.Year > 0 {
		parts = append(parts, strconv.Itoa(m.Year))
	}
	if m.Series != "" && m.Series != title {
		parts = append(parts, m.Series)
	}
	if m.Artist != "" {
		parts = append(parts, m.Artist)
	}
	if len(m.Genres) > 0 {
		parts = append(parts, strings.Join(m.Genres, " "))
	}
	if m.Overview != "" {
		parts = append(parts, m.Overview)
	}
	return strings.TrimSpace(strings.Join(parts, ". "))
}
