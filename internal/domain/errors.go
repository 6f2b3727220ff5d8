package domain

import "errors"

// error taxonomy for the ingestion pipeline. handlers match against them
// with errors.Is and translate them to HTTP status codes.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrInvalidPayload is a synchronous rejection at the ingest boundary:
	// a required field is missing or malformed.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUpstreamUnavailable signals a transient failure to reach the
	// buffer (the Metrics Store's pending_messages list).
	ErrUpstreamUnavailable = errors.New("upstream buffer unavailable")

	// ErrStoreUnavailable signals a read-path failure against the
	// relational store.
	ErrStoreUnavailable = errors.New("relational store unavailable")

	// ErrCommitFailed signals a bulk insert attempt was rejected by the
	// store. The coordinator retries once before re-queuing the batch.
	ErrCommitFailed = errors.New("batch commit failed")

	// ErrObserverWriteStalled signals a Telemetry Broadcaster session's
	// outbound channel was back-pressured beyond its write deadline.
	ErrObserverWriteStalled = errors.New("observer write stalled")

	// ErrMalformedBufferEntry is internal: a buffer pop returned a value
	// that does not decode into a Message. Never surfaced to callers.
	ErrMalformedBufferEntry = errors.New("malformed buffer entry")

	// ErrBufferFull signals an append refused because the buffer is
	// saturated. No current Buffer implementation or use case returns it.
	ErrBufferFull = errors.New("buffer full, try again later")
)
