package repo

import (
	"context"

	"github.com/tinoosan/radiofetch/internal/data"
)

// Task identifies one live request that needs a driver.
type Task struct {
	UserID    data.UserId
	RequestID data.RequestId
}

type StateRepo interface {
	StateReader
	StateWriter
}

type StateReader interface {
	LoadState(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestState, error)
	LoadContext(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestContext, error)
	// AllStatuses returns the status of every known request of a user,
	// including terminal ones still inside their retention window.
	AllStatuses(ctx context.Context, user data.UserId) (map[data.RequestId]data.RequestStatus, error)
	// AllTasks enumerates every (user, request) pair with a persisted
	// state, i.e. every request that has not reached a terminal step.
	AllTasks(ctx context.Context) ([]Task, error)
}

type StateWriter interface {
	CreateState(ctx context.Context, user data.UserId, req data.RequestId, state *data.RequestState) error
	CreateContext(ctx context.Context, user data.UserId, req data.RequestId, rc *data.RequestContext) error
	UpdateState(ctx context.Context, user data.UserId, req data.RequestId, state *data.RequestState) error
	UpdateStatus(ctx context.Context, user data.UserId, req data.RequestId, status data.RequestStatus) error
	DeleteState(ctx context.Context, user data.UserId, req data.RequestId) error
	DeleteContext(ctx context.Context, user data.UserId, req data.RequestId) error
	DeleteStatus(ctx context.Context, user data.UserId, req data.RequestId) error
}
