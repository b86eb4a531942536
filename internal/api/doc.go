// Package api serves the to-do entities over HTTP and WebSocket.
//
// Routes (all under /api/v1):
//
//	GET    /health
//	GET    /metrics
//	GET    /lists
//	GET    /lists/{entity}
//	POST   /lists/{entity}/refresh
//	GET    /lists/{entity}/items
//	POST   /lists/{entity}/items
//	DELETE /lists/{entity}/items            body: {"uids": [...]}
//	PATCH  /lists/{entity}/items/{uid}
//	DELETE /lists/{entity}/items/{uid}
//	POST   /lists/{entity}/items/{uid}/move body: {"previous_uid": "17" | null}
//	DELETE /lists/{entity}/order
//	GET    /ordering
//	GET    /ws
//
// When a JWT secret is configured every route except health and metrics
// requires an HS256 bearer token. WebSocket clients may pass the token as
// the "token" query parameter instead.
//
// WebSocket channels: todo.items_changed, ordering.updated.
package api
