package data

import "strconv"

// RequestId identifies a single track request. Generated once on creation
// and never reused.
type RequestId string

func (id RequestId) String() string { return string(id) }

// UserId identifies the radio-manager account a request belongs to.
type UserId uint64

func (id UserId) String() string { return strconv.FormatUint(uint64(id), 10) }

// TopicId identifies a search-result row on the tracker.
type TopicId uint64

func (id TopicId) String() string { return strconv.FormatUint(uint64(id), 10) }

// DownloadId is the tracker's handle for fetching the torrent file of a topic.
type DownloadId uint64

func (id DownloadId) String() string { return strconv.FormatUint(uint64(id), 10) }

// TorrentId is assigned by the torrent client when a torrent is added.
type TorrentId int64

func (id TorrentId) String() string { return strconv.FormatInt(int64(id), 10) }

// RadioManagerTrackId identifies an uploaded track on the radio manager.
type RadioManagerTrackId uint64

func (id RadioManagerTrackId) String() string { return strconv.FormatUint(uint64(id), 10) }

// RadioManagerChannelId identifies a channel playlist on the radio manager.
type RadioManagerChannelId uint64

func (id RadioManagerChannelId) String() string { return strconv.FormatUint(uint64(id), 10) }

// RadioManagerLinkId identifies a track's membership in a channel playlist.
type RadioManagerLinkId string

func (id RadioManagerLinkId) String() string { return string(id) }
