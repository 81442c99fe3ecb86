package v1

import "errors"

var (
	ErrRequestCtx  = errors.New("track request missing in context")
	ErrContentType = errors.New("Content-Type must be application/json")
	ErrUserID      = errors.New("userId is required")
	ErrArtist      = errors.New("metadata.artist is required")
	ErrTitle       = errors.New("metadata.title is required")
	ErrChannel     = errors.New("targetChannelId is required")
)
