package domain

import "errors"

var (
	// ErrAuthUnavailable means the identity provider could not issue or
	// recover a credential. Fatal to any write.
	ErrAuthUnavailable = errors.New("identity provider unavailable")

	// ErrEntryFailed means one of the entry upserts failed. Retrying the
	// whole entry is always safe because both writes are idempotent merges.
	ErrEntryFailed = errors.New("classroom entry failed")

	// ErrVoteFailed means the vote document write failed. The optimistic
	// local flag has been rolled back and the participant may retry.
	ErrVoteFailed = errors.New("vote submission failed")

	ErrEntryMarkerNotFound = errors.New("entry marker not found")
	ErrSessionClosed       = errors.New("session closed")
)
