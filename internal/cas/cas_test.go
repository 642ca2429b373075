package cas_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bitharbor/internal/cas"
	"bitharbor/internal/hashing"
	"bitharbor/internal/media"
	"bitharbor/internal/testsupport"
)

func TestStoreIsIdempotent(t *testing.T) {
	pool := cas.New(t.TempDir())
	source := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, source, []byte("video bytes"))
	digest, _, err := hashing.HashFile(source)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	first, err := pool.Store(source, media.ModalityVideo, digest)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	second, err := pool.Store(source, media.ModalityVideo, digest)
	if err != nil {
		t.Fatalf("second Store failed: %v", err)
	}
	if first != second {
		t.Fatalf("stored paths differ: %s vs %s", first, second)
	}

	payload, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read pooled file: %v", err)
	}
	if string(payload) != "video bytes" {
		t.Fatalf("pooled content mismatch: %q", payload)
	}
}

func TestStorePathLayout(t *testing.T) {
	root := t.TempDir()
	pool := cas.New(root)
	source := filepath.Join(t.TempDir(), "photo.JPG")
	testsupport.WriteFile(t, source, []byte("image bytes"))
	digest, _, err := hashing.HashFile(source)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	stored, err := pool.Store(source, media.ModalityImage, digest)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	want := filepath.Join(root, "image", digest[:2], digest+".jpg")
	if stored != want {
		t.Fatalf("stored path: got %s, want %s", stored, want)
	}
	if stored != pool.PathFor(media.ModalityImage, digest, ".JPG") {
		t.Fatal("PathFor disagrees with Store")
	}
}

func TestStoreMissingSource(t *testing.T) {
	pool := cas.New(t.TempDir())

	_, err := pool.Store(filepath.Join(t.TempDir(), "absent.mkv"), media.ModalityVideo, strings.Repeat("a", 64))
	if !errors.Is(err, cas.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	pool := cas.New(root)
	source := filepath.Join(t.TempDir(), "track.mp3")
	testsupport.WriteFile(t, source, []byte("audio bytes"))
	digest, _, err := hashing.HashFile(source)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	stored, err := pool.Store(source, media.ModalityAudio, digest)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(stored))
	if err != nil {
		t.Fatalf("read shard dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}
