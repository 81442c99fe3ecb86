package v1

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/tinoosan/radiofetch/internal/controller"
	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/suggest"
)

// TrackRequestHandler serves the track request API.
type TrackRequestHandler struct {
	l       *slog.Logger
	svc     controller.Service
	suggest suggest.Service

	// streamInterval paces the websocket status stream.
	streamInterval time.Duration
}

type createRequestBody struct {
	UserID          uint64              `json:"userId"`
	Metadata        data.AudioMetadata  `json:"metadata"`
	TargetChannelID uint64              `json:"targetChannelId"`
	Options         data.RequestOptions `json:"options"`
}

type suggestionsBody struct {
	Tracks []data.AudioMetadata `json:"tracks"`
}

type statusEntry struct {
	RequestID data.RequestId     `json:"requestId"`
	Status    data.RequestStatus `json:"status"`
}

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack lets the websocket upgrade reach the underlying connection through
// the logging wrapper.
func (w *rwLogger) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

// context keys
type ctxKeyCreateRequest struct{}

func NewTrackRequestHandler(l *slog.Logger, svc controller.Service, sugg suggest.Service) *TrackRequestHandler {
	return &TrackRequestHandler{l: l, svc: svc, suggest: sugg, streamInterval: time.Second}
}

// CreateRequest registers a new track request and starts processing it.
func (h *TrackRequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyCreateRequest{})
	body, ok := v.(*createRequestBody)
	if !ok || body == nil {
		markErr(w, ErrRequestCtx)
		http.Error(w, ErrRequestCtx.Error(), http.StatusInternalServerError)
		return
	}

	req, err := h.svc.CreateRequest(r.Context(), data.UserId(body.UserID), body.Metadata,
		body.Options, data.RadioManagerChannelId(body.TargetChannelID))
	if err != nil {
		markErr(w, err)
		switch {
		case errors.Is(err, data.ErrAlreadyExists):
			http.Error(w, "track already in channel", http.StatusConflict)
		default:
			http.Error(w, "failed to create request", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]data.RequestId{"requestId": req})
}

// GetRequests lists the status of every known request of a user.
func (h *TrackRequestHandler) GetRequests(w http.ResponseWriter, r *http.Request) {
	user, err := userFromQuery(r)
	if err != nil {
		markErr(w, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	statuses, err := h.svc.Statuses(r.Context(), user)
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to list requests", http.StatusInternalServerError)
		return
	}

	entries := make([]statusEntry, 0, len(statuses))
	for req, status := range statuses {
		entries = append(entries, statusEntry{RequestID: req, Status: status})
	}
	writeJSON(w, http.StatusOK, entries)
}

// DeleteRequest cancels a request. The driver notices the missing state and
// stops on its own.
func (h *TrackRequestHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	user, err := userFromQuery(r)
	if err != nil {
		markErr(w, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := data.RequestId(mux.Vars(r)["id"])

	if err := h.svc.CancelRequest(r.Context(), user, req); err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel request", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSuggestions asks the suggestion model for tracks fitting the given list.
func (h *TrackRequestHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	if h.suggest == nil {
		http.Error(w, "suggestions are not configured", http.StatusNotImplemented)
		return
	}

	var body suggestionsBody
	if err := decodeJSONStrict(w, r, &body, 1<<20); err != nil {
		markErr(w, err)
		status := http.StatusBadRequest
		if errors.Is(err, ErrContentType) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}

	suggestions, err := h.suggest.SuggestTracks(r.Context(), body.Tracks)
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to fetch suggestions", http.StatusBadGateway)
		return
	}
	if suggestions == nil {
		suggestions = []data.AudioMetadata{}
	}
	writeJSON(w, http.StatusOK, map[string][]data.AudioMetadata{"suggestions": suggestions})
}

// StreamStatuses pushes a user's request statuses over a websocket until the
// client disconnects.
func (h *TrackRequestHandler) StreamStatuses(w http.ResponseWriter, r *http.Request) {
	user, err := userFromQuery(r)
	if err != nil {
		markErr(w, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		markErr(w, err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()
	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		statuses, err := h.svc.Statuses(ctx, user)
		if err != nil {
			h.l.Error("status stream", "user_id", user, "err", err)
			conn.Close(websocket.StatusInternalError, "status lookup failed")
			return
		}
		entries := make([]statusEntry, 0, len(statuses))
		for req, status := range statuses {
			entries = append(entries, statusEntry{RequestID: req, Status: status})
		}
		if err := wsjson.Write(ctx, conn, entries); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

func userFromQuery(r *http.Request) (data.UserId, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, ErrUserID
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrUserID
	}
	return data.UserId(id), nil
}
