package media

import (
	"context"
	"errors"
	"io/fs"

	"github.com/bogem/id3v2"

	"github.com/tinoosan/radiofetch/internal/data"
)

// ID3Service reads ID3v2 tags from MP3 files on the local filesystem.
type ID3Service struct{}

var _ MetadataService = ID3Service{}

func NewID3Service() ID3Service { return ID3Service{} }

func (ID3Service) GetAudioMetadata(ctx context.Context, path string) (*data.AudioMetadata, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, data.ErrNotFound
		}
		// Unparseable tags are not an error for the caller; the file
		// simply has no metadata to verify against.
		return nil, nil
	}
	defer func() { _ = tag.Close() }()

	return &data.AudioMetadata{
		Title:  tag.Title(),
		Artist: tag.Artist(),
		Album:  tag.Album(),
	}, nil
}
