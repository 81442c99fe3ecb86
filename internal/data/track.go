package data

// AudioMetadata describes a track both as the requested target and as what
// a downloaded file actually contains.
type AudioMetadata struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// Equal reports whether two descriptions match on all three fields.
func (m AudioMetadata) Equal(other AudioMetadata) bool {
	return m.Title == other.Title && m.Artist == other.Artist && m.Album == other.Album
}

// TopicData is one candidate row from a tracker search.
type TopicData struct {
	TopicID    TopicId    `json:"topicId"`
	DownloadID DownloadId `json:"downloadId"`
	Title      string     `json:"title"`
}

// TorrentStatus is the coarse completion state of a torrent inside the client.
type TorrentStatus string

const (
	TorrentDownloading TorrentStatus = "Downloading"
	TorrentComplete    TorrentStatus = "Complete"
)

// TorrentSnapshot is a point-in-time view of a torrent: its status and the
// relative paths of its files, in torrent file order.
type TorrentSnapshot struct {
	Status TorrentStatus
	Files  []string
}
