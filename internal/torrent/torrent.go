package torrent

import (
	"context"

	"github.com/tinoosan/radiofetch/internal/data"
)

// Client manages torrents inside a downloader daemon. Implementations must
// be safe for concurrent use by many request drivers.
type Client interface {
	// Add registers a torrent without starting it. Files listed in wanted
	// are selected for download; an empty list leaves every file unwanted
	// until Select is called.
	Add(ctx context.Context, meta []byte, wanted []int) (data.TorrentId, error)
	// Select marks the given file indexes wanted and starts the transfer.
	Select(ctx context.Context, id data.TorrentId, fileIndexes []int) error
	Get(ctx context.Context, id data.TorrentId) (*data.TorrentSnapshot, error)
	// Remove deletes the torrent entry; withData also removes the
	// downloaded files from disk.
	Remove(ctx context.Context, id data.TorrentId, withData bool) error
}
