package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tinoosan/radiofetch/internal/data"
)

// PostgresStateRepo implements StateRepo backed by PostgreSQL. Contexts,
// states and statuses live in separate tables, each keyed by
// (user_id, request_id); states carry a version bumped on every update.
type PostgresStateRepo struct {
	db *sql.DB
}

// NewPostgresStateRepo constructs a repository using the provided DSN.
func NewPostgresStateRepo(dsn string) (*PostgresStateRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &PostgresStateRepo{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresStateRepoFromEnv constructs a DSN using component env vars.
// Recognized envs (with defaults):
//
//	POSTGRES_HOST (postgres), POSTGRES_PORT (5432), POSTGRES_DB (radiofetch),
//	POSTGRES_USER (radiofetch), POSTGRES_PASSWORD (empty), POSTGRES_SSLMODE (disable)
//
// Credentials and db name are URL-encoded to handle special characters safely.
func NewPostgresStateRepoFromEnv() (*PostgresStateRepo, error) {
	host := getenv("POSTGRES_HOST", "postgres")
	port := getenv("POSTGRES_PORT", "5432")
	db := getenv("POSTGRES_DB", "radiofetch")
	user := getenv("POSTGRES_USER", "radiofetch")
	pass := getenv("POSTGRES_PASSWORD", "")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := url.Values{}
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return NewPostgresStateRepo(u.String())
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (r *PostgresStateRepo) Close() error { return r.db.Close() }

var _ StateRepo = (*PostgresStateRepo)(nil)

func (r *PostgresStateRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS track_request_states (
    user_id BIGINT NOT NULL,
    request_id TEXT NOT NULL,
    state JSONB NOT NULL,
    version BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, request_id)
);
CREATE TABLE IF NOT EXISTS track_request_contexts (
    user_id BIGINT NOT NULL,
    request_id TEXT NOT NULL,
    context JSONB NOT NULL,
    PRIMARY KEY (user_id, request_id)
);
CREATE TABLE IF NOT EXISTS track_request_statuses (
    user_id BIGINT NOT NULL,
    request_id TEXT NOT NULL,
    status TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, request_id)
);
`)
	return err
}

func (r *PostgresStateRepo) CreateState(ctx context.Context, user data.UserId, req data.RequestId, state *data.RequestState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO track_request_states (user_id, request_id, state) VALUES ($1, $2, $3)`,
		int64(user), string(req), string(raw))
	if isUniqueViolation(err) {
		return data.ErrObjectExists
	}
	return err
}

func (r *PostgresStateRepo) CreateContext(ctx context.Context, user data.UserId, req data.RequestId, rc *data.RequestContext) error {
	raw, err := json.Marshal(rc)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO track_request_contexts (user_id, request_id, context) VALUES ($1, $2, $3)`,
		int64(user), string(req), string(raw))
	if isUniqueViolation(err) {
		return data.ErrObjectExists
	}
	return err
}

func (r *PostgresStateRepo) UpdateState(ctx context.Context, user data.UserId, req data.RequestId, state *data.RequestState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE track_request_states SET state=$3, version=version+1, updated_at=now() WHERE user_id=$1 AND request_id=$2`,
		int64(user), string(req), string(raw))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}

func (r *PostgresStateRepo) UpdateStatus(ctx context.Context, user data.UserId, req data.RequestId, status data.RequestStatus) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO track_request_statuses (user_id, request_id, status) VALUES ($1, $2, $3)
ON CONFLICT (user_id, request_id) DO UPDATE SET status=EXCLUDED.status, updated_at=now()`,
		int64(user), string(req), string(status))
	return err
}

func (r *PostgresStateRepo) LoadState(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestState, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT state FROM track_request_states WHERE user_id=$1 AND request_id=$2`,
		int64(user), string(req)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}
	state := &data.RequestState{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *PostgresStateRepo) LoadContext(ctx context.Context, user data.UserId, req data.RequestId) (*data.RequestContext, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT context FROM track_request_contexts WHERE user_id=$1 AND request_id=$2`,
		int64(user), string(req)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}
	rc := &data.RequestContext{}
	if err := json.Unmarshal([]byte(raw), rc); err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *PostgresStateRepo) DeleteState(ctx context.Context, user data.UserId, req data.RequestId) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM track_request_states WHERE user_id=$1 AND request_id=$2`,
		int64(user), string(req))
	return err
}

func (r *PostgresStateRepo) DeleteContext(ctx context.Context, user data.UserId, req data.RequestId) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM track_request_contexts WHERE user_id=$1 AND request_id=$2`,
		int64(user), string(req))
	return err
}

func (r *PostgresStateRepo) DeleteStatus(ctx context.Context, user data.UserId, req data.RequestId) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM track_request_statuses WHERE user_id=$1 AND request_id=$2`,
		int64(user), string(req))
	return err
}

func (r *PostgresStateRepo) AllStatuses(ctx context.Context, user data.UserId) (map[data.RequestId]data.RequestStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT request_id, status FROM track_request_statuses WHERE user_id=$1`, int64(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[data.RequestId]data.RequestStatus)
	for rows.Next() {
		var req, status string
		if err := rows.Scan(&req, &status); err != nil {
			return nil, err
		}
		out[data.RequestId(req)] = data.RequestStatus(status)
	}
	return out, rows.Err()
}

func (r *PostgresStateRepo) AllTasks(ctx context.Context) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, request_id FROM track_request_states ORDER BY updated_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []Task
	for rows.Next() {
		var uid int64
		var req string
		if err := rows.Scan(&uid, &req); err != nil {
			return nil, err
		}
		tasks = append(tasks, Task{UserID: data.UserId(uid), RequestID: data.RequestId(req)})
	}
	return tasks, rows.Err()
}

// PruneStatuses removes terminal statuses older than the retention window.
// Only Finished and Failed entries are eligible.
func (r *PostgresStateRepo) PruneStatuses(ctx context.Context, retention time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM track_request_statuses
WHERE status IN ('Finished', 'Failed') AND updated_at < now() - $1::interval`,
		strings.TrimSpace(retention.String()))
	return err
}

func isUniqueViolation(err error) bool {
	// pgx stdlib returns error strings containing "duplicate key value violates unique constraint"
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint")
}
