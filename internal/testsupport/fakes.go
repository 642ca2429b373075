package testsupport

import (
	"context"
	"os"

	"lukechampine.com/blake3"

	"bitharbor/internal/media"
)

// FakeEmbedder produces deterministic vectors derived from the input
// bytes, so identical content always embeds identically. Setting Fail
// makes every call return that error.
type FakeEmbedder struct {
	Dims  int
	Fail  error
	Calls int
}

// EmbedContent embeds the file's bytes.
func (f *FakeEmbedder) EmbedContent(ctx context.Context, path string, modality media.Modality) ([]float32, error) {
	f.Calls++
	if f.Fail != nil {
		return nil, f.Fail
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.vectorFor(payload), nil
}

// EmbedText embeds the text.
func (f *FakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.Calls++
	if f.Fail != nil {
		return nil, f.Fail
	}
	return f.vectorFor([]byte(text)), nil
}

// EmbedTextImage embeds the text fused with the image file's bytes.
func (f *FakeEmbedder) EmbedTextImage(ctx context.Context, text, imagePath string) ([]float32, error) {
	f.Calls++
	if f.Fail != nil {
		return nil, f.Fail
	}
	payload, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}
	return f.vectorFor(append([]byte(text), payload...)), nil
}

func (f *FakeEmbedder) vectorFor(payload []byte) []float32 {
	sum := blake3.Sum256(payload)
	vec := make([]float32, f.Dims)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)]) + 1
	}
	return vec
}

// FakeEnricher returns a canned enrichment result.
type FakeEnricher struct {
	Meta  media.Metadata
	Raw   string
	Found bool
	Err   error
	Calls int
}

// Enrich returns the configured result regardless of input.
func (f *FakeEnricher) Enrich(ctx context.Context, typ media.Type, title string, year int) (media.Metadata, string, bool, error) {
	f.Calls++
	if f.Err != nil {
		return media.Metadata{}, "", false, f.Err
	}
	return f.Meta, f.Raw, f.Found, nil
}
