package errors

import "errors"

// Signaling errors
var (
	// ErrInvalidPayload is returned when a connect request body cannot be
	// parsed into a session description
	ErrInvalidPayload = errors.New("invalid connect payload")

	// ErrUnknownSession is returned when a connect request references a
	// session id with no matching session
	ErrUnknownSession = errors.New("unknown session")

	// ErrNegotiationFailed is returned when the transport layer rejects a
	// remote description or fails to produce an answer
	ErrNegotiationFailed = errors.New("negotiation failed")

	// ErrShuttingDown is returned for offers received after shutdown started
	ErrShuttingDown = errors.New("server is shutting down")
)

// Storage errors
var (
	// ErrUnsupportedDatabase is returned for unknown database types
	ErrUnsupportedDatabase = errors.New("unsupported database type")

	// ErrStoreClosed is returned when operating on a closed store
	ErrStoreClosed = errors.New("store is closed")
)
