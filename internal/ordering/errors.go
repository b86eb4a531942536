package ordering

import "errors"

// Domain errors for the ordering package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, ordering.ErrReferenceNotFound) {
//	    // reject the move request
//	}
var (
	// ErrReferenceNotFound is returned when a move names an anchor item that
	// is not part of the displayed ordering.
	ErrReferenceNotFound = errors.New("ordering: reference item not found")

	// ErrItemNotFound is returned when the moved item is not part of the
	// displayed ordering.
	ErrItemNotFound = errors.New("ordering: item not found")

	// ErrCorruptRecord is returned when the persisted record exists but
	// cannot be decoded.
	ErrCorruptRecord = errors.New("ordering: persisted record is corrupt")

	// ErrUnsupportedVersion is returned when the persisted record was written
	// by a newer storage version.
	ErrUnsupportedVersion = errors.New("ordering: unsupported record version")

	// ErrNotLoaded is returned by Save when Load has not succeeded yet.
	ErrNotLoaded = errors.New("ordering: store not loaded")
)
