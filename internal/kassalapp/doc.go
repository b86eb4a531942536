// Package kassalapp is a small client for the Kassal.app shopping-list API.
//
// Only the shopping-list endpoints used by the to-do bridge are covered:
//
//	GET    /shopping-lists
//	GET    /shopping-lists/{list}/items
//	POST   /shopping-lists/{list}/items
//	PATCH  /shopping-lists/{list}/items/{item}
//	DELETE /shopping-lists/{list}/items/{item}
//
// Every request carries the bearer token and is paced by a client-side token
// bucket so the service stays inside the account's request quota. Responses
// are wrapped by the API as {"data": ...}; the client unwraps them.
//
// Usage:
//
//	client := kassalapp.New(kassalapp.Options{Token: cfg.Kassalapp.Token})
//	lists, err := client.ShoppingLists(ctx)
//	if errors.Is(err, kassalapp.ErrInvalidAPIKey) {
//	    // ask for a new token
//	}
package kassalapp
