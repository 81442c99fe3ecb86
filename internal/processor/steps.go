package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinoosan/radiofetch/internal/data"
)

// audioFileExtensions lists the file suffixes eligible for selection inside
// a torrent, in no particular order. MP3 is the documented baseline.
var audioFileExtensions = []string{".mp3"}

func (p *Processor) getTopicsIntoQueue(ctx context.Context, rc *data.RequestContext, state *data.RequestState) error {
	query := fmt.Sprintf("%s - %s", rc.Metadata.Artist, rc.Metadata.Album)

	var topics []data.TopicData
	err := p.retry(ctx, "search.find_all", p.cfg.Timeouts.Search, func(callCtx context.Context) error {
		var err error
		topics, err = p.search.FindAll(callCtx, query)
		return err
	})
	if err != nil {
		return fmt.Errorf("search topics: %w", err)
	}

	queue := make([]data.TopicData, 0, len(topics))
	for _, topic := range topics {
		if !state.Tried(topic.TopicID) {
			queue = append(queue, topic)
		}
	}
	if len(queue) == 0 {
		return data.ErrCandidatesExhausted
	}
	state.TopicsQueue = queue
	return nil
}

func (p *Processor) downloadNextTorrentFile(ctx context.Context, state *data.RequestState) error {
	head := state.TopicsQueue[0]

	var torrentData []byte
	err := p.retry(ctx, "search.download_torrent", p.cfg.Timeouts.Search, func(callCtx context.Context) error {
		var err error
		torrentData, err = p.search.DownloadTorrent(callCtx, head.DownloadID)
		return err
	})
	if err != nil {
		p.log.Warn("torrent file unavailable, rotating candidate",
			"topic_id", head.TopicID, "download_id", head.DownloadID, "err", err)
		rejectHead(state)
		return nil
	}

	state.CurrentTorrentData = torrentData
	return nil
}

func (p *Processor) download(ctx context.Context, state *data.RequestState) error {
	var torrentID data.TorrentId
	err := p.retry(ctx, "torrent.add", p.cfg.Timeouts.Torrent, func(callCtx context.Context) error {
		var err error
		torrentID, err = p.torrents.Add(callCtx, state.CurrentTorrentData, nil)
		return err
	})
	if err != nil {
		p.log.Warn("torrent rejected by client, rotating candidate", "err", err)
		rejectHead(state)
		state.CurrentTorrentData = nil
		return nil
	}

	snapshot, err := p.getTorrent(ctx, torrentID)
	if err != nil {
		p.removeTorrentLogged(ctx, torrentID)
		rejectHead(state)
		state.CurrentTorrentData = nil
		return nil
	}

	fileIndex := audioFileIndex(snapshot.Files)
	if fileIndex < 0 {
		p.log.Info("no audio file in torrent, rotating candidate", "torrent_id", torrentID)
		p.removeTorrentLogged(ctx, torrentID)
		rejectHead(state)
		state.CurrentTorrentData = nil
		return nil
	}

	err = p.retry(ctx, "torrent.select", p.cfg.Timeouts.Torrent, func(callCtx context.Context) error {
		return p.torrents.Select(callCtx, torrentID, []int{fileIndex})
	})
	if err != nil {
		p.removeTorrentLogged(ctx, torrentID)
		rejectHead(state)
		state.CurrentTorrentData = nil
		return nil
	}

	state.CurrentTorrentID = &torrentID
	return nil
}

func (p *Processor) checkDownloadStatus(ctx context.Context, state *data.RequestState) error {
	torrentID := *state.CurrentTorrentID
	for {
		snapshot, err := p.getTorrent(ctx, torrentID)
		if err != nil {
			return fmt.Errorf("poll torrent %d: %w", torrentID, err)
		}
		if snapshot.Status == data.TorrentComplete {
			fileIndex := audioFileIndex(snapshot.Files)
			if fileIndex < 0 {
				return fmt.Errorf("%w: completed torrent %d has no audio file", data.ErrStateConflict, torrentID)
			}
			state.PathToDownloadedFile = filepath.Join(p.cfg.DownloadRoot, snapshot.Files[fileIndex])
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

func (p *Processor) uploadToRadioManager(ctx context.Context, user data.UserId, rc *data.RequestContext, state *data.RequestState) error {
	if rc.Options.ValidateMetadata {
		metaCtx, cancel := callContext(ctx, p.cfg.Timeouts.Metadata)
		actual, err := p.meta.GetAudioMetadata(metaCtx, state.PathToDownloadedFile)
		cancel()
		// A missing file is an infrastructure fault, not a bad release.
		if errors.Is(err, data.ErrNotFound) {
			return fmt.Errorf("read downloaded file %s: %w", state.PathToDownloadedFile, err)
		}
		if err != nil || actual == nil || !actual.Equal(rc.Metadata) {
			p.log.Info("metadata mismatch, rotating candidate",
				"path", state.PathToDownloadedFile, "err", err)
			p.rejectDownloadedCandidate(ctx, state)
			return nil
		}
	}

	var trackID data.RadioManagerTrackId
	err := p.retry(ctx, "radio_manager.upload_audio_track", p.cfg.Timeouts.RadioManager, func(callCtx context.Context) error {
		var err error
		trackID, err = p.radio.UploadAudioTrack(callCtx, user, state.PathToDownloadedFile)
		return err
	})
	if err != nil {
		return fmt.Errorf("upload audio track: %w", err)
	}

	state.RadioManagerTrackID = &trackID
	return nil
}

func (p *Processor) addToRadioManagerChannel(ctx context.Context, user data.UserId, rc *data.RequestContext, state *data.RequestState) error {
	var linkID data.RadioManagerLinkId
	err := p.retry(ctx, "radio_manager.add_track_to_channel", p.cfg.Timeouts.RadioManager, func(callCtx context.Context) error {
		var err error
		linkID, err = p.radio.AddTrackToChannelPlaylist(callCtx, user, *state.RadioManagerTrackID, rc.TargetChannelID)
		return err
	})
	if err != nil {
		return fmt.Errorf("add track to channel: %w", err)
	}

	state.RadioManagerLinkID = &linkID
	return nil
}

// rejectDownloadedCandidate rolls a request back to the next candidate after
// the downloaded file turned out to be wrong: the torrent and its data are
// removed and every field populated since DownloadNextTorrentFile is unset.
func (p *Processor) rejectDownloadedCandidate(ctx context.Context, state *data.RequestState) {
	if state.CurrentTorrentID != nil {
		p.removeTorrentLogged(ctx, *state.CurrentTorrentID)
	}
	rejectHead(state)
	state.CurrentTorrentData = nil
	state.CurrentTorrentID = nil
	state.PathToDownloadedFile = ""
}

// rejectHead consumes the head of the topics queue: it is recorded in
// tried_topics and removed; an emptied queue is unset entirely to force a
// re-search on the next tick.
func rejectHead(state *data.RequestState) {
	if len(state.TopicsQueue) == 0 {
		return
	}
	head := state.TopicsQueue[0]
	state.TriedTopics = append(state.TriedTopics, head.TopicID)
	state.TopicsQueue = state.TopicsQueue[1:]
	if len(state.TopicsQueue) == 0 {
		state.TopicsQueue = nil
	}
}

// audioFileIndex returns the index of the first file carrying an audio
// extension, or -1 when the torrent holds none.
func audioFileIndex(files []string) int {
	for i, file := range files {
		base := strings.ToLower(filepath.Base(file))
		for _, ext := range audioFileExtensions {
			if strings.HasSuffix(base, ext) {
				return i
			}
		}
	}
	return -1
}

func (p *Processor) getTorrent(ctx context.Context, id data.TorrentId) (*data.TorrentSnapshot, error) {
	var snapshot *data.TorrentSnapshot
	err := p.retry(ctx, "torrent.get", p.cfg.Timeouts.Torrent, func(callCtx context.Context) error {
		var err error
		snapshot, err = p.torrents.Get(callCtx, id)
		return err
	})
	return snapshot, err
}

func (p *Processor) removeTorrent(ctx context.Context, id data.TorrentId, withData bool) error {
	return p.retry(ctx, "torrent.remove", p.cfg.Timeouts.Torrent, func(callCtx context.Context) error {
		return p.torrents.Remove(callCtx, id, withData)
	})
}

func (p *Processor) removeTorrentLogged(ctx context.Context, id data.TorrentId) {
	if err := p.removeTorrent(ctx, id, true); err != nil {
		p.log.Error("remove torrent", "torrent_id", id, "err", err)
	}
}
