package todo

import "errors"

var (
	// ErrListUnavailable is returned by MoveItem when the list has no data yet.
	ErrListUnavailable = errors.New("todo: list unavailable")

	// ErrInvalidUID is returned when an item UID is not a Kassalapp item ID.
	ErrInvalidUID = errors.New("todo: invalid item uid")

	// ErrEntityNotFound is returned by Platform lookups.
	ErrEntityNotFound = errors.New("todo: entity not found")

	// ErrEmptySummary is returned when creating an item without text.
	ErrEmptySummary = errors.New("todo: summary is required")

	// ErrInvalidStatus is returned for a status other than needs_action or
	// completed.
	ErrInvalidStatus = errors.New("todo: invalid status")
)
