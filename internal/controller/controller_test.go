package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/processor"
	"github.com/tinoosan/radiofetch/internal/repo"
)

type searchStub struct {
	mu      sync.Mutex
	queries []string
}

func (s *searchStub) FindAll(ctx context.Context, query string) ([]data.TopicData, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return nil, nil
}

func (s *searchStub) DownloadTorrent(ctx context.Context, id data.DownloadId) ([]byte, error) {
	return nil, errors.New("unexpected DownloadTorrent")
}

type torrentStub struct{}

func (torrentStub) Add(ctx context.Context, meta []byte, wanted []int) (data.TorrentId, error) {
	return 0, errors.New("unexpected Add")
}

func (torrentStub) Get(ctx context.Context, id data.TorrentId) (*data.TorrentSnapshot, error) {
	return nil, errors.New("unexpected Get")
}

func (torrentStub) Select(ctx context.Context, id data.TorrentId, files []int) error {
	return errors.New("unexpected Select")
}

func (torrentStub) Remove(ctx context.Context, id data.TorrentId, withData bool) error {
	return nil
}

type metaStub struct{}

func (metaStub) GetAudioMetadata(ctx context.Context, path string) (*data.AudioMetadata, error) {
	return nil, nil
}

type radioStub struct{}

func (radioStub) UploadAudioTrack(ctx context.Context, user data.UserId, path string) (data.RadioManagerTrackId, error) {
	return 0, errors.New("unexpected UploadAudioTrack")
}

func (radioStub) AddTrackToChannelPlaylist(ctx context.Context, user data.UserId, track data.RadioManagerTrackId, channel data.RadioManagerChannelId) (data.RadioManagerLinkId, error) {
	return "", errors.New("unexpected AddTrackToChannelPlaylist")
}

func (radioStub) GetChannelTracks(ctx context.Context, channel data.RadioManagerChannelId) ([]data.AudioMetadata, error) {
	return nil, nil
}

func testProcessor(states repo.StateRepo, search *searchStub) *processor.Processor {
	cfg := processor.Config{
		RetryInitial:     time.Millisecond,
		RetryCap:         time.Millisecond,
		RetryMaxAttempts: 1,
		StatusRetention:  time.Hour,
	}
	return processor.New(nil, states, search, torrentStub{}, metaStub{}, radioStub{}, cfg)
}

func seedRequest(t *testing.T, states repo.StateRepo, user data.UserId, req data.RequestId) {
	t.Helper()
	if err := states.CreateState(context.Background(), user, req, &data.RequestState{}); err != nil {
		t.Fatalf("CreateState: %v", err)
	}
	rc := &data.RequestContext{
		Metadata:        data.AudioMetadata{Title: "Sunday Breakfast", Artist: "Ted Irens", Album: "Foo"},
		TargetChannelID: 1,
		CreatedAt:       time.Now().UTC(),
	}
	if err := states.CreateContext(context.Background(), user, req, rc); err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	if err := states.UpdateStatus(context.Background(), user, req, data.StatusPending); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
}

func TestRunRehydratesPersistedTasks(t *testing.T) {
	states := repo.NewInMemoryStateRepo()
	seedRequest(t, states, 1, "req-a")
	seedRequest(t, states, 2, "req-b")

	search := &searchStub{}
	c := New(nil, testProcessor(states, search), states)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	c.Stop()

	// Both drivers ran: an empty search result fails each request after one
	// attempt, so every task searched exactly once.
	search.mu.Lock()
	defer search.mu.Unlock()
	if len(search.queries) != 2 {
		t.Fatalf("search calls = %d, want 2", len(search.queries))
	}
	tasks, err := states.AllTasks(context.Background())
	if err != nil {
		t.Fatalf("AllTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("tasks after drain = %v, want none", tasks)
	}
}

func TestSpawnRefusesDuplicateDriver(t *testing.T) {
	states := repo.NewInMemoryStateRepo()
	c := New(nil, testProcessor(states, &searchStub{}), states)
	c.mu.Lock()
	c.inflight["req-a"] = struct{}{}
	c.mu.Unlock()

	c.spawn(1, "req-a")

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inflight) != 1 {
		t.Fatalf("inflight = %d, want 1", len(c.inflight))
	}
}

func TestCancelRequestRemovesRecords(t *testing.T) {
	states := repo.NewInMemoryStateRepo()
	seedRequest(t, states, 1, "req-a")

	c := New(nil, testProcessor(states, &searchStub{}), states)
	if err := c.CancelRequest(context.Background(), 1, "req-a"); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	if _, err := states.LoadState(context.Background(), 1, "req-a"); !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("state after cancel: err = %v, want ErrNotFound", err)
	}
	statuses, _ := states.AllStatuses(context.Background(), 1)
	if len(statuses) != 0 {
		t.Fatalf("statuses = %v, want none", statuses)
	}

	if err := c.CancelRequest(context.Background(), 1, "req-a"); !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("second cancel err = %v, want ErrNotFound", err)
	}
}
