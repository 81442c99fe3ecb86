package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tinoosan/radiofetch/internal/reqid"
)

const headerRequestID = "X-Request-ID"

// RequestID guarantees a correlation ID on every call: an incoming
// X-Request-ID is reused, otherwise a fresh UUID is minted. The ID is
// parked in the request context and echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(reqid.With(r.Context(), id)))
	})
}
