package bridge

import (
	"time"

	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

// Action names a command.
type Action string

// Supported actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionMove   Action = "move"
	ActionReset  Action = "reset"
)

// Command is an inbound request for one entity.
type Command struct {
	// ID correlates the acknowledgement. Generated when empty.
	ID     string `json:"id,omitempty"`
	Action Action `json:"action"`

	// create
	Summary   string `json:"summary,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`

	// update and move; update also uses NewSummary and Status
	UID        string       `json:"uid,omitempty"`
	NewSummary *string      `json:"new_summary,omitempty"`
	Status     *todo.Status `json:"status,omitempty"`

	// move; empty means the head of the list
	PreviousUID string `json:"previous_uid,omitempty"`

	// delete
	UIDs []string `json:"uids,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

// Acknowledgement outcomes.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// Error codes carried by failed acknowledgements.
const (
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeUnavailable    = "UNAVAILABLE"
	ErrCodeUpstream       = "UPSTREAM_ERROR"
)

// Ack is published on the entity's ack topic after every command.
type Ack struct {
	CommandID string    `json:"command_id"`
	EntityID  string    `json:"entity_id"`
	Action    Action    `json:"action,omitempty"`
	Status    AckStatus `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// State is the retained snapshot of one entity.
type State struct {
	EntityID  string      `json:"entity_id"`
	UniqueID  string      `json:"unique_id"`
	Title     string      `json:"title"`
	Available bool        `json:"available"`
	Features  []string    `json:"supported_features"`
	Items     []todo.Item `json:"items"`
	Timestamp time.Time   `json:"timestamp"`
}
