package search

import (
	"context"

	"github.com/tinoosan/radiofetch/internal/data"
)

// Provider finds torrent candidates for a textual query and fetches the
// torrent file of a chosen candidate. FindAll returns candidates already
// ranked best-first; the processor consumes them in order.
type Provider interface {
	FindAll(ctx context.Context, query string) ([]data.TopicData, error)
	DownloadTorrent(ctx context.Context, id data.DownloadId) ([]byte, error)
}
