package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/media"
	"github.com/tinoosan/radiofetch/internal/metrics"
	"github.com/tinoosan/radiofetch/internal/radioman"
	"github.com/tinoosan/radiofetch/internal/repo"
	"github.com/tinoosan/radiofetch/internal/search"
	"github.com/tinoosan/radiofetch/internal/torrent"
)

// Timeouts bounds individual adapter calls. A zero value leaves the call
// bounded only by the driver's context.
type Timeouts struct {
	Search       time.Duration
	Torrent      time.Duration
	Metadata     time.Duration
	RadioManager time.Duration
	State        time.Duration
}

// Config tunes a Processor. Zero fields fall back to the defaults below.
type Config struct {
	DownloadRoot     string
	PollInterval     time.Duration
	RetryInitial     time.Duration
	RetryFactor      float64
	RetryCap         time.Duration
	RetryMaxAttempts uint64
	StatusRetention  time.Duration
	Timeouts         Timeouts
}

func (c Config) withDefaults() Config {
	if c.DownloadRoot == "" {
		c.DownloadRoot = "downloads"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = time.Second
	}
	if c.RetryFactor <= 0 {
		c.RetryFactor = 2
	}
	if c.RetryCap <= 0 {
		c.RetryCap = 60 * time.Second
	}
	if c.RetryMaxAttempts == 0 {
		c.RetryMaxAttempts = 6
	}
	if c.StatusRetention <= 0 {
		c.StatusRetention = time.Hour
	}
	return c
}

// Processor advances track requests through their state machine. One
// Processor serves every request; per-request mutable state lives in the
// state repository and in the driver goroutine that calls ProcessRequest.
type Processor struct {
	log      *slog.Logger
	states   repo.StateRepo
	search   search.Provider
	torrents torrent.Client
	meta     media.MetadataService
	radio    radioman.RadioManager
	cfg      Config
}

func New(log *slog.Logger, states repo.StateRepo, provider search.Provider, torrents torrent.Client, meta media.MetadataService, radio radioman.RadioManager, cfg Config) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		log:      log,
		states:   states,
		search:   provider,
		torrents: torrents,
		meta:     meta,
		radio:    radio,
		cfg:      cfg.withDefaults(),
	}
}

// CreateRequest persists the context and empty state of a new request and
// returns its id. When the request asks for metadata validation, a track
// already present in the target channel fails the call with
// data.ErrAlreadyExists before anything is written.
func (p *Processor) CreateRequest(ctx context.Context, user data.UserId, metadata data.AudioMetadata, opts data.RequestOptions, channel data.RadioManagerChannelId) (data.RequestId, error) {
	if opts.ValidateMetadata {
		var tracks []data.AudioMetadata
		err := p.retry(ctx, "radio_manager.get_channel_tracks", p.cfg.Timeouts.RadioManager, func(callCtx context.Context) error {
			var err error
			tracks, err = p.radio.GetChannelTracks(callCtx, channel)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("list channel tracks: %w", err)
		}
		for _, track := range tracks {
			if track.Equal(metadata) {
				return "", data.ErrAlreadyExists
			}
		}
	}

	req := data.RequestId(uuid.NewString())
	rc := &data.RequestContext{
		Metadata:        metadata,
		TargetChannelID: channel,
		Options:         opts,
		CreatedAt:       time.Now().UTC(),
	}

	stateCtx, cancel := callContext(ctx, p.cfg.Timeouts.State)
	defer cancel()
	if err := p.states.CreateState(stateCtx, user, req, &data.RequestState{}); err != nil {
		return "", fmt.Errorf("create state: %w", err)
	}
	if err := p.states.CreateContext(stateCtx, user, req, rc); err != nil {
		// Keep the pair invariant: no state without a context.
		_ = p.states.DeleteState(stateCtx, user, req)
		return "", fmt.Errorf("create context: %w", err)
	}
	if err := p.states.UpdateStatus(stateCtx, user, req, data.StatusPending); err != nil {
		p.log.Error("update status", "user_id", user, "request_id", req, "err", err)
	}

	p.log.Info("created track request", "user_id", user, "request_id", req,
		"artist", metadata.Artist, "title", metadata.Title, "channel_id", rc.TargetChannelID)
	return req, nil
}

// ProcessRequest drives one request until it terminates. It is the body of
// a driver goroutine: it loads the persisted state, derives the next step,
// executes it and persists the result, looping until Finish or failure. A
// state that vanishes mid-flight means the request was cancelled; the
// driver exits silently.
func (p *Processor) ProcessRequest(ctx context.Context, user data.UserId, req data.RequestId) error {
	log := p.log.With("user_id", user, "request_id", req)
	processing := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := p.loadState(ctx, user, req)
		if errors.Is(err, data.ErrNotFound) {
			log.Info("state gone, request cancelled")
			return nil
		}
		if err != nil {
			return err
		}
		rc, err := p.loadContext(ctx, user, req)
		if errors.Is(err, data.ErrNotFound) {
			p.fail(ctx, log, user, req, state)
			return data.ErrStateConflict
		}
		if err != nil {
			return err
		}

		step := state.Step()
		metrics.RequestSteps.WithLabelValues(string(step)).Inc()
		log.Debug("executing step", "step", step)

		if step == data.StepFinish {
			p.finish(ctx, log, user, req, state)
			return nil
		}

		if err := p.runStep(ctx, user, rc, state, step); err != nil {
			log.Error("step failed", "step", step, "err", err)
			p.fail(ctx, log, user, req, state)
			return err
		}

		if err := p.persistState(ctx, user, req, state); err != nil {
			if errors.Is(err, data.ErrNotFound) {
				log.Info("state gone, request cancelled")
				return nil
			}
			return err
		}
		if !processing {
			processing = true
			p.updateStatus(ctx, user, req, data.StatusProcessing)
		}
	}
}

func (p *Processor) runStep(ctx context.Context, user data.UserId, rc *data.RequestContext, state *data.RequestState, step data.Step) error {
	switch step {
	case data.StepGetTopicsIntoQueue:
		return p.getTopicsIntoQueue(ctx, rc, state)
	case data.StepDownloadNextTorrentFile:
		return p.downloadNextTorrentFile(ctx, state)
	case data.StepDownload:
		return p.download(ctx, state)
	case data.StepCheckDownloadStatus:
		return p.checkDownloadStatus(ctx, state)
	case data.StepUploadToRadioManager:
		return p.uploadToRadioManager(ctx, user, rc, state)
	case data.StepAddToRadioManagerChannel:
		return p.addToRadioManagerChannel(ctx, user, rc, state)
	default:
		return fmt.Errorf("%w: unknown step %s", data.ErrStateConflict, step)
	}
}

// finish runs terminal cleanup for a completed request.
func (p *Processor) finish(ctx context.Context, log *slog.Logger, user data.UserId, req data.RequestId, state *data.RequestState) {
	p.cleanupTorrent(ctx, log, state)
	p.updateStatus(ctx, user, req, data.StatusFinished)
	p.deletePair(ctx, user, req)
	p.scheduleStatusCleanup(user, req)
	metrics.RequestsTerminal.WithLabelValues(string(data.StatusFinished)).Inc()
	log.Info("track request finished")
}

// fail abandons a request: cleanup, Failed status, record removal.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, user data.UserId, req data.RequestId, state *data.RequestState) {
	p.cleanupTorrent(ctx, log, state)
	p.updateStatus(ctx, user, req, data.StatusFailed)
	p.deletePair(ctx, user, req)
	p.scheduleStatusCleanup(user, req)
	metrics.RequestsTerminal.WithLabelValues(string(data.StatusFailed)).Inc()
	log.Info("track request failed")
}

func (p *Processor) cleanupTorrent(ctx context.Context, log *slog.Logger, state *data.RequestState) {
	if state == nil || state.CurrentTorrentID == nil {
		return
	}
	if err := p.removeTorrent(ctx, *state.CurrentTorrentID, true); err != nil {
		log.Error("remove torrent", "torrent_id", *state.CurrentTorrentID, "err", err)
	}
}

func (p *Processor) deletePair(ctx context.Context, user data.UserId, req data.RequestId) {
	stateCtx, cancel := callContext(ctx, p.cfg.Timeouts.State)
	defer cancel()
	if err := p.states.DeleteState(stateCtx, user, req); err != nil {
		p.log.Error("delete state", "user_id", user, "request_id", req, "err", err)
	}
	if err := p.states.DeleteContext(stateCtx, user, req); err != nil {
		p.log.Error("delete context", "user_id", user, "request_id", req, "err", err)
	}
}

// scheduleStatusCleanup drops the terminal status entry once the retention
// window passes, so late pollers can still observe the outcome.
func (p *Processor) scheduleStatusCleanup(user data.UserId, req data.RequestId) {
	time.AfterFunc(p.cfg.StatusRetention, func() {
		ctx, cancel := callContext(context.Background(), p.cfg.Timeouts.State)
		defer cancel()
		if err := p.states.DeleteStatus(ctx, user, req); err != nil {
			p.log.Error("delete status", "user_id", user, "request_id", req, "err", err)
		}
	})
}

func (p *Processor) loadState(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestState, error) {
	stateCtx, cancel := callContext(ctx, p.cfg.Timeouts.State)
	defer cancel()
	return p.states.LoadState(stateCtx, user, req)
}

func (p *Processor) loadContext(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestContext, error) {
	stateCtx, cancel := callContext(ctx, p.cfg.Timeouts.State)
	defer cancel()
	return p.states.LoadContext(stateCtx, user, req)
}

func (p *Processor) persistState(ctx context.Context, user data.UserId, req data.RequestId, state *data.RequestState) error {
	stateCtx, cancel := callContext(ctx, p.cfg.Timeouts.State)
	defer cancel()
	return p.states.UpdateState(stateCtx, user, req, state)
}

func (p *Processor) updateStatus(ctx context.Context, user data.UserId, req data.RequestId, status data.RequestStatus) {
	stateCtx, cancel := callContext(ctx, p.cfg.Timeouts.State)
	defer cancel()
	if err := p.states.UpdateStatus(stateCtx, user, req, status); err != nil {
		p.log.Error("update status", "user_id", user, "request_id", req, "status", status, "err", err)
	}
}
