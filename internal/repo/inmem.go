package repo

import (
	"context"
	"sync"

	"github.com/tinoosan/radiofetch/internal/data"
)

type key struct {
	user data.UserId
	req  data.RequestId
}

// InMemoryStateRepo keeps request contexts, states and statuses in process
// memory. It backs tests and single-node deployments without Postgres.
type InMemoryStateRepo struct {
	mu       sync.RWMutex
	states   map[key]*data.RequestState
	contexts map[key]*data.RequestContext
	statuses map[key]data.RequestStatus
}

func NewInMemoryStateRepo() *InMemoryStateRepo {
	return &InMemoryStateRepo{
		states:   make(map[key]*data.RequestState),
		contexts: make(map[key]*data.RequestContext),
		statuses: make(map[key]data.RequestStatus),
	}
}

var _ StateRepo = (*InMemoryStateRepo)(nil)

func (r *InMemoryStateRepo) CreateState(ctx context.Context, user data.UserId, req data.RequestId, state *data.RequestState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{user, req}
	if _, ok := r.states[k]; ok {
		return data.ErrObjectExists
	}
	r.states[k] = state.Clone()
	return nil
}

func (r *InMemoryStateRepo) CreateContext(ctx context.Context, user data.UserId, req data.RequestId, rc *data.RequestContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{user, req}
	if _, ok := r.contexts[k]; ok {
		return data.ErrObjectExists
	}
	c := *rc
	r.contexts[k] = &c
	return nil
}

func (r *InMemoryStateRepo) UpdateState(ctx context.Context, user data.UserId, req data.RequestId, state *data.RequestState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{user, req}
	if _, ok := r.states[k]; !ok {
		return data.ErrNotFound
	}
	r.states[k] = state.Clone()
	return nil
}

func (r *InMemoryStateRepo) UpdateStatus(ctx context.Context, user data.UserId, req data.RequestId, status data.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[key{user, req}] = status
	return nil
}

func (r *InMemoryStateRepo) LoadState(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[key{user, req}]
	if !ok {
		return nil, data.ErrNotFound
	}
	return state.Clone(), nil
}

func (r *InMemoryStateRepo) LoadContext(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.contexts[key{user, req}]
	if !ok {
		return nil, data.ErrNotFound
	}
	c := *rc
	return &c, nil
}

func (r *InMemoryStateRepo) DeleteState(ctx context.Context, user data.UserId, req data.RequestId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, key{user, req})
	return nil
}

func (r *InMemoryStateRepo) DeleteContext(ctx context.Context, user data.UserId, req data.RequestId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, key{user, req})
	return nil
}

func (r *InMemoryStateRepo) DeleteStatus(ctx context.Context, user data.UserId, req data.RequestId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statuses, key{user, req})
	return nil
}

func (r *InMemoryStateRepo) AllStatuses(ctx context.Context, user data.UserId) (map[data.RequestId]data.RequestStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[data.RequestId]data.RequestStatus)
	for k, s := range r.statuses {
		if k.user == user {
			out[k.req] = s
		}
	}
	return out, nil
}

func (r *InMemoryStateRepo) AllTasks(ctx context.Context) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tasks := make([]Task, 0, len(r.states))
	for k := range r.states {
		tasks = append(tasks, Task{UserID: k.user, RequestID: k.req})
	}
	return tasks, nil
}
