package todo

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/kassalapp-todo/internal/kassalapp"
)

// Status is the completion state of an item.
type Status string

// Item statuses.
const (
	StatusNeedsAction Status = "needs_action"
	StatusCompleted   Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusNeedsAction || s == StatusCompleted
}

// Product is the catalogue product linked to an item.
type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Item is a to-do item as shown to users.
type Item struct {
	UID     string   `json:"uid"`
	Summary string   `json:"summary"`
	Status  Status   `json:"status"`
	Product *Product `json:"product,omitempty"`
}

// ItemUID implements ordering.Identified.
func (i Item) ItemUID() string {
	return i.UID
}

// ItemUpdate is a partial update of one item. Nil fields are not sent.
type ItemUpdate struct {
	UID     string  `json:"uid"`
	Summary *string `json:"summary,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

// Feature is a bit set of supported list operations.
type Feature uint8

// Supported features.
const (
	FeatureCreateItem Feature = 1 << iota
	FeatureUpdateItem
	FeatureDeleteItem
	FeatureMoveItem
)

// SupportedFeatures is what every Kassalapp entity supports.
const SupportedFeatures = FeatureCreateItem | FeatureUpdateItem | FeatureDeleteItem | FeatureMoveItem

// Has reports whether all bits of other are set.
func (f Feature) Has(other Feature) bool {
	return f&other == other
}

// Names lists the set features, for JSON and MQTT payloads.
func (f Feature) Names() []string {
	var names []string
	for _, fn := range []struct {
		bit  Feature
		name string
	}{
		{FeatureCreateItem, "create_todo_item"},
		{FeatureUpdateItem, "update_todo_item"},
		{FeatureDeleteItem, "delete_todo_item"},
		{FeatureMoveItem, "move_todo_item"},
	} {
		if f.Has(fn.bit) {
			names = append(names, fn.name)
		}
	}
	return names
}

// ItemFromRemote converts an API item. checked maps to completed, anything else
// to needs_action.
func ItemFromRemote(in kassalapp.ShoppingListItem) Item {
	status := StatusNeedsAction
	if in.Checked {
		status = StatusCompleted
	}

	item := Item{
		UID:     strconv.FormatInt(in.ID, 10),
		Summary: in.Text,
		Status:  status,
	}
	if in.Product != nil {
		item.Product = &Product{ID: in.Product.ID, Name: in.Product.Name, Image: in.Product.Image}
	}
	return item
}

// toRemoteUpdate converts the set fields of u.
func toRemoteUpdate(u ItemUpdate) kassalapp.ItemUpdate {
	var out kassalapp.ItemUpdate
	if u.Summary != nil {
		text := *u.Summary
		out.Text = &text
	}
	if u.Status != nil {
		checked := *u.Status == StatusCompleted
		out.Checked = &checked
	}
	return out
}

// parseUID turns an item UID back into the API item ID.
func parseUID(uid string) (int64, error) {
	id, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUID, uid)
	}
	return id, nil
}
