package v1

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// MiddlewareTrackRequestValidation decodes and validates the create-request
// body and stores it in the request context for the handler.
func MiddlewareTrackRequestValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := &createRequestBody{}
		if err := decodeJSONStrict(w, r, body, 1<<20); err != nil {
			markErr(w, err)
			if errors.Is(err, ErrContentType) {
				http.Error(w, ErrContentType.Error(), http.StatusUnsupportedMediaType)
				return
			}
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		if body.UserID == 0 {
			markErr(w, ErrUserID)
			http.Error(w, ErrUserID.Error(), http.StatusBadRequest)
			return
		}
		if body.Metadata.Artist == "" {
			markErr(w, ErrArtist)
			http.Error(w, ErrArtist.Error(), http.StatusBadRequest)
			return
		}
		if body.Metadata.Title == "" {
			markErr(w, ErrTitle)
			http.Error(w, ErrTitle.Error(), http.StatusBadRequest)
			return
		}
		if body.TargetChannelID == 0 {
			markErr(w, ErrChannel)
			http.Error(w, ErrChannel.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyCreateRequest{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *TrackRequestHandler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		timeElapsed := time.Since(startTime)
		hErr := rw.err
		if hErr != nil {
			h.l.Error(hErr.Error(),
				"method", r.Method,
				"url", r.URL.Path,
				"status", rw.status,
				"remote", r.RemoteAddr,
				"ua", r.UserAgent(),
				"dur_ms", timeElapsed.Milliseconds(),
				"bytes", rw.bytes)
			return
		}

		h.l.Info("", "method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"remote", r.RemoteAddr,
			"ua", r.UserAgent(),
			"dur_ms", timeElapsed.Milliseconds(),
			"bytes", rw.bytes)
	})
}
