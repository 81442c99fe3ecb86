package radioman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/metrics"
)

// Client is an HTTP client for the radio-manager API, authenticated with a
// bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ RadioManager = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	return &Client{baseURL: baseURL, token: token, http: &http.Client{}}
}

// UploadAudioTrack streams the audio file as a multipart form and returns
// the id the service assigned to the new track.
func (c *Client) UploadAudioTrack(ctx context.Context, user data.UserId, path string) (data.RadioManagerTrackId, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	u := fmt.Sprintf("%s/api/users/%d/tracks", c.baseURL, uint64(user))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result struct {
		TrackID uint64 `json:"trackId"`
	}
	if err := c.do(req, "upload_audio_track", &result); err != nil {
		return 0, err
	}
	return data.RadioManagerTrackId(result.TrackID), nil
}

// AddTrackToChannelPlaylist appends an uploaded track to a channel playlist
// and returns the link id of the new playlist entry.
func (c *Client) AddTrackToChannelPlaylist(ctx context.Context, user data.UserId, track data.RadioManagerTrackId, channel data.RadioManagerChannelId) (data.RadioManagerLinkId, error) {
	payload, _ := json.Marshal(map[string]any{
		"userId":  uint64(user),
		"trackId": uint64(track),
	})
	u := fmt.Sprintf("%s/api/channels/%d/tracks", c.baseURL, uint64(channel))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		LinkID string `json:"linkId"`
	}
	if err := c.do(req, "add_track_to_channel", &result); err != nil {
		return "", err
	}
	return data.RadioManagerLinkId(result.LinkID), nil
}

// GetChannelTracks lists the metadata of every track currently in a channel.
func (c *Client) GetChannelTracks(ctx context.Context, channel data.RadioManagerChannelId) ([]data.AudioMetadata, error) {
	u := fmt.Sprintf("%s/api/channels/%d/tracks", c.baseURL, uint64(channel))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var tracks []data.AudioMetadata
	if err := c.do(req, "get_channel_tracks", &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// CheckConnection verifies the API is reachable with the configured token.
func (c *Client) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return err
	}
	return c.do(req, "check_connection", nil)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RadioManagerErrors.WithLabelValues(op).Inc()
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RadioManagerErrors.WithLabelValues(op).Inc()
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RadioManagerErrors.WithLabelValues(op).Inc()
		// Throttling is worth retrying; other 4xx responses are final.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("%w: radio-manager http %d: %s", data.ErrPermanent, resp.StatusCode, string(body))
		}
		return fmt.Errorf("radio-manager http %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("radio-manager decode: %w (%s)", err, string(body))
	}
	return nil
}
