package transmission

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tinoosan/radiofetch/internal/data"
)

type rpcCall struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments"`
}

// fakeDaemon is a minimal transmission RPC endpoint with the 409 session
// handshake and canned per-method responses.
type fakeDaemon struct {
	sessionID string
	calls     []rpcCall
	respond   func(call rpcCall) (any, string)
}

func (d *fakeDaemon) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(sessionHeader) != d.sessionID {
			w.Header().Set(sessionHeader, d.sessionID)
			w.WriteHeader(http.StatusConflict)
			return
		}
		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.calls = append(d.calls, call)

		args, result := any(map[string]any{}), "success"
		if d.respond != nil {
			args, result = d.respond(call)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result":    result,
			"arguments": args,
		})
	}
}

func newTestClient(t *testing.T, d *fakeDaemon) *Client {
	t.Helper()
	srv := httptest.NewServer(d.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, "", "", "downloads")
}

func torrentPayload(id int64, percentDone float64, files ...string) map[string]any {
	fileObjs := make([]map[string]any, 0, len(files))
	for _, f := range files {
		fileObjs = append(fileObjs, map[string]any{"name": f})
	}
	return map[string]any{
		"torrents": []map[string]any{
			{"id": id, "percentDone": percentDone, "files": fileObjs},
		},
	}
}

func TestSessionHandshake(t *testing.T) {
	d := &fakeDaemon{sessionID: "sess-1"}
	c := newTestClient(t, d)

	if err := c.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if len(d.calls) != 1 || d.calls[0].Method != "torrent-get" {
		t.Fatalf("calls = %v, want one torrent-get after handshake", d.calls)
	}

	// Session id is cached for the next call.
	if err := c.CheckConnection(context.Background()); err != nil {
		t.Fatalf("second CheckConnection: %v", err)
	}
	if len(d.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(d.calls))
	}
}

func TestAddMarksEverythingUnwanted(t *testing.T) {
	meta := []byte("d4:infoe")
	d := &fakeDaemon{sessionID: "sess-1"}
	d.respond = func(call rpcCall) (any, string) {
		switch call.Method {
		case "torrent-add":
			return map[string]any{"torrent-added": map[string]any{"id": 5}}, "success"
		case "torrent-get":
			return torrentPayload(5, 0, "path/to/01 - Sunday Breakfast.mp3", "path/to/cover.jpg"), "success"
		default:
			return map[string]any{}, "success"
		}
	}
	c := newTestClient(t, d)

	id, err := c.Add(context.Background(), meta, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != 5 {
		t.Fatalf("id = %d, want 5", id)
	}

	add := d.calls[0]
	if add.Method != "torrent-add" {
		t.Fatalf("first call = %s, want torrent-add", add.Method)
	}
	if add.Arguments["metainfo"] != base64.StdEncoding.EncodeToString(meta) {
		t.Fatalf("metainfo = %v", add.Arguments["metainfo"])
	}
	if add.Arguments["paused"] != true {
		t.Fatalf("paused = %v, want true", add.Arguments["paused"])
	}
	if add.Arguments["download-dir"] != "downloads" {
		t.Fatalf("download-dir = %v", add.Arguments["download-dir"])
	}

	last := d.calls[len(d.calls)-1]
	if last.Method != "torrent-set" {
		t.Fatalf("last call = %s, want torrent-set", last.Method)
	}
	if fmt.Sprint(last.Arguments["files-unwanted"]) != "[0 1]" {
		t.Fatalf("files-unwanted = %v, want [0 1]", last.Arguments["files-unwanted"])
	}
}

func TestSelectStartsTorrent(t *testing.T) {
	d := &fakeDaemon{sessionID: "sess-1"}
	c := newTestClient(t, d)

	if err := c.Select(context.Background(), 5, []int{0}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(d.calls) != 2 {
		t.Fatalf("calls = %v, want torrent-set then torrent-start", d.calls)
	}
	if d.calls[0].Method != "torrent-set" || fmt.Sprint(d.calls[0].Arguments["files-wanted"]) != "[0]" {
		t.Fatalf("first call = %+v", d.calls[0])
	}
	if d.calls[1].Method != "torrent-start" {
		t.Fatalf("second call = %s, want torrent-start", d.calls[1].Method)
	}
}

func TestGetMapsCompletion(t *testing.T) {
	d := &fakeDaemon{sessionID: "sess-1"}
	done := false
	d.respond = func(call rpcCall) (any, string) {
		if done {
			return torrentPayload(5, 1, "path/to/01 - Sunday Breakfast.mp3"), "success"
		}
		return torrentPayload(5, 0.42, "path/to/01 - Sunday Breakfast.mp3"), "success"
	}
	c := newTestClient(t, d)

	snapshot, err := c.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snapshot.Status != data.TorrentDownloading {
		t.Fatalf("status = %q, want Downloading", snapshot.Status)
	}

	done = true
	snapshot, err = c.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snapshot.Status != data.TorrentComplete {
		t.Fatalf("status = %q, want Complete", snapshot.Status)
	}
	if len(snapshot.Files) != 1 || snapshot.Files[0] != "path/to/01 - Sunday Breakfast.mp3" {
		t.Fatalf("files = %v", snapshot.Files)
	}
}

func TestGetUnknownTorrentIsPermanent(t *testing.T) {
	d := &fakeDaemon{sessionID: "sess-1"}
	d.respond = func(call rpcCall) (any, string) {
		return map[string]any{"torrents": []any{}}, "success"
	}
	c := newTestClient(t, d)

	_, err := c.Get(context.Background(), 99)
	if !errors.Is(err, data.ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent", err)
	}
}

func TestRemoveDeletesLocalData(t *testing.T) {
	d := &fakeDaemon{sessionID: "sess-1"}
	c := newTestClient(t, d)

	if err := c.Remove(context.Background(), 5, true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	call := d.calls[0]
	if call.Method != "torrent-remove" {
		t.Fatalf("method = %s, want torrent-remove", call.Method)
	}
	if call.Arguments["delete-local-data"] != true {
		t.Fatalf("delete-local-data = %v, want true", call.Arguments["delete-local-data"])
	}
}

func TestRPCErrorResult(t *testing.T) {
	d := &fakeDaemon{sessionID: "sess-1"}
	d.respond = func(call rpcCall) (any, string) {
		return map[string]any{}, "unrecognized info"
	}
	c := newTestClient(t, d)

	if err := c.Remove(context.Background(), 5, false); err == nil {
		t.Fatal("expected error for non-success result")
	}
}
