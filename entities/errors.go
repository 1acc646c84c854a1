package entities

import "errors"

var (
	// ErrNoClaimableRecording means no unclaimed recording matched a claim
	// request. Routine: workers retry on their next poll.
	ErrNoClaimableRecording = errors.New("no claimable recording")

	// ErrJobKeyMismatch rejects a report whose token does not match the
	// stored claim, usually a straggling worker from a previous claim.
	ErrJobKeyMismatch = errors.New("job key does not match current claim")

	// ErrInvalidState means a stage is not in the configured pipeline for a
	// recording type. Indicates a logic bug, never expected in operation.
	ErrInvalidState = errors.New("invalid processing state")

	// ErrInvalidFilter rejects an unrecognized tag mode or filter column
	// before any query executes.
	ErrInvalidFilter = errors.New("invalid filter")

	ErrAuthorizationDenied = errors.New("authorization denied")

	ErrRecordingNotFound = errors.New("recording not found")
)
