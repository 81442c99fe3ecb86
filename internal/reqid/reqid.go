// Package reqid carries the correlation ID of a track request's HTTP call
// through context, so handlers and adapters can tag their log lines.
package reqid

import "context"

type ctxKey struct{}

// With stores id in ctx. A nil ctx is treated as context.Background.
func With(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the correlation ID stored by With. The second return is
// false when no non-empty ID is present.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(ctxKey{}).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
