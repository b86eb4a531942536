package kassalapp

import "time"

// ShoppingList is a list as returned by GET /shopping-lists.
type ShoppingList struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Emoji     string     `json:"emoji,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ShoppingListItem is one entry of a shopping list.
type ShoppingListItem struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Checked   bool       `json:"checked"`
	Product   *Product   `json:"product,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Product is the catalogue product an item may be linked to.
type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// ItemUpdate is a partial update. Nil fields are left unchanged.
type ItemUpdate struct {
	Text    *string `json:"text,omitempty"`
	Checked *bool   `json:"checked,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ItemUpdate) Empty() bool {
	return u.Text == nil && u.Checked == nil
}

type newItem struct {
	Text      string `json:"text"`
	ProductID *int64 `json:"product_id,omitempty"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
}
