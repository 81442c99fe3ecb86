package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"

	"github.com/tinoosan/radiofetch/internal/data"
)

func writeTaggedFile(t *testing.T, meta data.AudioMetadata) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		t.Fatalf("open tag: %v", err)
	}
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	tag.SetAlbum(meta.Album)
	if err := tag.Save(); err != nil {
		t.Fatalf("save tag: %v", err)
	}
	if err := tag.Close(); err != nil {
		t.Fatalf("close tag: %v", err)
	}
	return path
}

func TestGetAudioMetadata(t *testing.T) {
	want := data.AudioMetadata{Title: "Sunday Breakfast", Artist: "Ted Irens", Album: "Foo"}
	path := writeTaggedFile(t, want)

	got, err := NewID3Service().GetAudioMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("GetAudioMetadata: %v", err)
	}
	if got == nil || !got.Equal(want) {
		t.Fatalf("metadata = %+v, want %+v", got, want)
	}
}

func TestGetAudioMetadataMissingFile(t *testing.T) {
	_, err := NewID3Service().GetAudioMetadata(context.Background(), "downloads/does/not/exist.mp3")
	if !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
