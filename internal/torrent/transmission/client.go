package transmission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/metrics"
	"github.com/tinoosan/radiofetch/internal/torrent"
)

const sessionHeader = "X-Transmission-Session-Id"

// Client talks to a transmission daemon over its JSON-RPC endpoint. The
// session id handshake is handled transparently; everything else is safe
// for concurrent use.
type Client struct {
	url         string
	username    string
	password    string
	downloadDir string
	http        *http.Client

	mu        sync.Mutex
	sessionID string
}

var _ torrent.Client = (*Client)(nil)

// New creates a transmission RPC client. username and password may be empty
// when the daemon runs without auth. downloadDir is passed on torrent-add so
// the daemon writes into the shared download root.
func New(url, username, password, downloadDir string) *Client {
	return &Client{
		url:         url,
		username:    username,
		password:    password,
		downloadDir: downloadDir,
		http:        &http.Client{},
	}
}

// --- JSON-RPC wire types ---

type rpcReq struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
}

type rpcResp struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, args any) (json.RawMessage, error) {
	timer := prometheus.NewTimer(metrics.TransmissionRPCLatency.WithLabelValues(method))
	defer timer.ObserveDuration()

	body, _ := json.Marshal(rpcReq{Method: method, Arguments: args})

	// One retry is enough: the daemon rejects with 409 exactly once to
	// hand out a fresh session id.
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}
		c.mu.Lock()
		if c.sessionID != "" {
			req.Header.Set(sessionHeader, c.sessionID)
		}
		c.mu.Unlock()

		resp, err := c.http.Do(req)
		if err != nil {
			metrics.TransmissionRPCErrors.WithLabelValues(method).Inc()
			return nil, err
		}

		if resp.StatusCode == http.StatusConflict {
			id := resp.Header.Get(sessionHeader)
			_ = resp.Body.Close()
			c.mu.Lock()
			c.sessionID = id
			c.mu.Unlock()
			continue
		}

		b, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			metrics.TransmissionRPCErrors.WithLabelValues(method).Inc()
			return nil, readErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			metrics.TransmissionRPCErrors.WithLabelValues(method).Inc()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, fmt.Errorf("%w: transmission http %d: %s", data.ErrPermanent, resp.StatusCode, string(b))
			}
			return nil, fmt.Errorf("transmission http %d: %s", resp.StatusCode, string(b))
		}

		var rr rpcResp
		if err := json.Unmarshal(b, &rr); err != nil {
			metrics.TransmissionRPCErrors.WithLabelValues(method).Inc()
			return nil, fmt.Errorf("transmission rpc decode: %w (%s)", err, string(b))
		}
		if rr.Result != "success" {
			metrics.TransmissionRPCErrors.WithLabelValues(method).Inc()
			return nil, fmt.Errorf("transmission rpc result: %s", rr.Result)
		}
		return rr.Arguments, nil
	}
	metrics.TransmissionRPCErrors.WithLabelValues(method).Inc()
	return nil, fmt.Errorf("transmission session handshake failed")
}

type torrentInfo struct {
	ID          int64   `json:"id"`
	PercentDone float64 `json:"percentDone"`
	Files       []struct {
		Name string `json:"name"`
	} `json:"files"`
}

// Add registers the torrent paused, then marks every file outside wanted as
// unwanted so nothing transfers until Select.
func (c *Client) Add(ctx context.Context, meta []byte, wanted []int) (data.TorrentId, error) {
	res, err := c.call(ctx, "torrent-add", map[string]any{
		"metainfo":     base64.StdEncoding.EncodeToString(meta),
		"download-dir": c.downloadDir,
		"paused":       true,
	})
	if err != nil {
		return 0, err
	}

	var added struct {
		TorrentAdded     *torrentInfo `json:"torrent-added"`
		TorrentDuplicate *torrentInfo `json:"torrent-duplicate"`
	}
	if err := json.Unmarshal(res, &added); err != nil {
		return 0, fmt.Errorf("parse torrent-add result: %w", err)
	}
	info := added.TorrentAdded
	if info == nil {
		info = added.TorrentDuplicate
	}
	if info == nil {
		return 0, fmt.Errorf("torrent-add returned no torrent")
	}
	id := data.TorrentId(info.ID)

	snapshot, err := c.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	wantedSet := make(map[int]bool, len(wanted))
	for _, i := range wanted {
		wantedSet[i] = true
	}
	unwanted := make([]int, 0, len(snapshot.Files))
	for i := range snapshot.Files {
		if !wantedSet[i] {
			unwanted = append(unwanted, i)
		}
	}
	if len(unwanted) > 0 {
		if _, err := c.call(ctx, "torrent-set", map[string]any{
			"ids":            []int64{int64(id)},
			"files-unwanted": unwanted,
		}); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (c *Client) Select(ctx context.Context, id data.TorrentId, fileIndexes []int) error {
	if _, err := c.call(ctx, "torrent-set", map[string]any{
		"ids":          []int64{int64(id)},
		"files-wanted": fileIndexes,
	}); err != nil {
		return err
	}
	_, err := c.call(ctx, "torrent-start", map[string]any{
		"ids": []int64{int64(id)},
	})
	return err
}

func (c *Client) Get(ctx context.Context, id data.TorrentId) (*data.TorrentSnapshot, error) {
	res, err := c.call(ctx, "torrent-get", map[string]any{
		"ids":    []int64{int64(id)},
		"fields": []string{"id", "percentDone", "files"},
	})
	if err != nil {
		return nil, err
	}
	var args struct {
		Torrents []torrentInfo `json:"torrents"`
	}
	if err := json.Unmarshal(res, &args); err != nil {
		return nil, fmt.Errorf("parse torrent-get result: %w", err)
	}
	if len(args.Torrents) == 0 {
		return nil, fmt.Errorf("%w: torrent %d not found", data.ErrPermanent, id)
	}
	info := args.Torrents[0]

	snapshot := &data.TorrentSnapshot{Status: data.TorrentDownloading}
	if info.PercentDone >= 1 {
		snapshot.Status = data.TorrentComplete
	}
	for _, f := range info.Files {
		snapshot.Files = append(snapshot.Files, f.Name)
	}
	return snapshot, nil
}

func (c *Client) Remove(ctx context.Context, id data.TorrentId, withData bool) error {
	_, err := c.call(ctx, "torrent-remove", map[string]any{
		"ids":               []int64{int64(id)},
		"delete-local-data": withData,
	})
	return err
}

// CheckConnection performs an empty torrent-get to verify the daemon is
// reachable and credentials are accepted.
func (c *Client) CheckConnection(ctx context.Context) error {
	_, err := c.call(ctx, "torrent-get", map[string]any{
		"fields": []string{"id"},
	})
	return err
}
