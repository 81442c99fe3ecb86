package radioman

import (
	"context"

	"github.com/tinoosan/radiofetch/internal/data"
)

// RadioManager is the radio-management service: it stores uploaded audio
// tracks per user and links them into channel playlists.
type RadioManager interface {
	UploadAudioTrack(ctx context.Context, user data.UserId, path string) (data.RadioManagerTrackId, error)
	AddTrackToChannelPlaylist(ctx context.Context, user data.UserId, track data.RadioManagerTrackId, channel data.RadioManagerChannelId) (data.RadioManagerLinkId, error)
	GetChannelTracks(ctx context.Context, channel data.RadioManagerChannelId) ([]data.AudioMetadata, error)
}
