package media

import (
	"context"

	"github.com/tinoosan/radiofetch/internal/data"
)

// MetadataService reads the embedded tags of a local audio file. A nil
// result with a nil error means the file carries no readable tags.
type MetadataService interface {
	GetAudioMetadata(ctx context.Context, path string) (*data.AudioMetadata, error)
}
