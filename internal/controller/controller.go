package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/metrics"
	"github.com/tinoosan/radiofetch/internal/processor"
	"github.com/tinoosan/radiofetch/internal/repo"
)

// Service is the request-management surface the admin API consumes.
type Service interface {
	CreateRequest(ctx context.Context, user data.UserId, metadata data.AudioMetadata, opts data.RequestOptions, channel data.RadioManagerChannelId) (data.RequestId, error)
	CancelRequest(ctx context.Context, user data.UserId, req data.RequestId) error
	Statuses(ctx context.Context, user data.UserId) (map[data.RequestId]data.RequestStatus, error)
}

// Controller owns the driver goroutines. It rehydrates live requests from
// the state store at startup and spawns exactly one driver per request.
type Controller struct {
	log    *slog.Logger
	proc   *processor.Processor
	states repo.StateRepo

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[data.RequestId]struct{}
}

var _ Service = (*Controller)(nil)

func New(log *slog.Logger, proc *processor.Processor, states repo.StateRepo) *Controller {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		log:      log,
		proc:     proc,
		states:   states,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[data.RequestId]struct{}),
	}
}

// Run enumerates every persisted non-terminal request and spawns a driver
// for each. Step derivation is state-driven, so resumed drivers continue
// exactly where the previous process stopped.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Debug("loading tasks")
	tasks, err := c.states.AllTasks(ctx)
	if err != nil {
		return err
	}
	c.log.Info("spawning track request drivers", "count", len(tasks))
	for _, task := range tasks {
		c.spawn(task.UserID, task.RequestID)
	}
	return nil
}

// Stop cancels every driver and waits for them to exit.
func (c *Controller) Stop() {
	c.cancel()
	c.wg.Wait()
}

// CreateRequest persists a new request and starts its driver.
func (c *Controller) CreateRequest(ctx context.Context, user data.UserId, metadata data.AudioMetadata, opts data.RequestOptions, channel data.RadioManagerChannelId) (data.RequestId, error) {
	req, err := c.proc.CreateRequest(ctx, user, metadata, opts, channel)
	if err != nil {
		return "", err
	}
	c.spawn(user, req)
	return req, nil
}

// CancelRequest removes a request's records. The owning driver observes the
// missing state on its next load and exits silently.
func (c *Controller) CancelRequest(ctx context.Context, user data.UserId, req data.RequestId) error {
	if _, err := c.states.LoadState(ctx, user, req); err != nil {
		return err
	}
	if err := c.states.DeleteState(ctx, user, req); err != nil {
		return err
	}
	if err := c.states.DeleteContext(ctx, user, req); err != nil {
		return err
	}
	return c.states.DeleteStatus(ctx, user, req)
}

// Statuses lists the lifecycle tag of every known request of a user.
func (c *Controller) Statuses(ctx context.Context, user data.UserId) (map[data.RequestId]data.RequestStatus, error) {
	return c.states.AllStatuses(ctx, user)
}

func (c *Controller) spawn(user data.UserId, req data.RequestId) {
	c.mu.Lock()
	if _, running := c.inflight[req]; running {
		c.mu.Unlock()
		c.log.Warn("driver already running", "user_id", user, "request_id", req)
		return
	}
	c.inflight[req] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	metrics.ActiveRequests.Inc()
	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.inflight, req)
			c.mu.Unlock()
			metrics.ActiveRequests.Dec()
			c.wg.Done()
		}()
		if err := c.proc.ProcessRequest(c.ctx, user, req); err != nil {
			c.log.Error("track request processing failed", "user_id", user, "request_id", req, "err", err)
		}
	}()
}
