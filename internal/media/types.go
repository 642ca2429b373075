package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Modality identifies the physical kind of an ingested file.
type Modality string

const (
	ModalityVideo Modality = "video"
	ModalityAudio Modality = "audio"
	ModalityImage Modality = "image"
)

// Valid reports whether the modality is one of the known values.
func (m Modality) Valid() bool {
	switch m {
	case ModalityVideo, ModalityAudio, ModalityImage:
		return true
	}
	return false
}

// Type identifies the logical catalog category of a media entity.
type Type string

const (
	TypeMovie    Type = "movie"
	TypeTV       Type = "tv"
	TypeMusic    Type = "music"
	TypePodcast  Type = "podcast"
	TypeVideo    Type = "video"
	TypePersonal Type = "personal"
)

// ParseType validates and converts a user-supplied media type string.
func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	switch t {
	case TypeMovie, TypeTV, TypeMusic, TypePodcast, TypeVideo, TypePersonal:
		return t, nil
	}
	return "", fmt.Errorf("unknown media type %q", value)
}

// SourceType records where a media entity came from.
type SourceType string

const (
	SourceCatalog SourceType = "catalog"
	SourceHome    SourceType = "home"
)

// EmbeddingSource records which payload produced the entity's vector.
type EmbeddingSource string

const (
	EmbedFromText      EmbeddingSource = "text"
	EmbedFromContent   EmbeddingSource = "content"
	EmbedFromTextImage EmbeddingSource = "text+image"
)

// TitleFromPath derives a display title from a source file name.
func TitleFromPath(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
	if cleaned == "" {
		return "Untitled"
	}
	return cleaned
}
