package data

import "errors"

var (
	// ErrNotFound is returned when a state, context or status record does
	// not exist. A driver observing it mid-flight treats the request as
	// cancelled.
	ErrNotFound = errors.New("object not found")

	// ErrObjectExists is returned by create operations when a record with
	// the same key is already present.
	ErrObjectExists = errors.New("object already exists")

	// ErrAlreadyExists is returned by create_request when the target
	// channel already holds a track with the requested metadata.
	ErrAlreadyExists = errors.New("track already exists in channel")

	// ErrCandidatesExhausted means no usable topic remains for a request.
	ErrCandidatesExhausted = errors.New("no track candidates left")

	// ErrStateConflict signals an internal inconsistency, e.g. a state
	// present without its context.
	ErrStateConflict = errors.New("request state conflict")

	// ErrPermanent marks adapter failures that must not be retried.
	// Adapters wrap 4xx-class upstream responses with it.
	ErrPermanent = errors.New("permanent upstream failure")
)
