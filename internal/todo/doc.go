// Package todo exposes each Kassalapp shopping list as a to-do list entity.
//
// An Entity combines three things: a coordinator that polls the list's items,
// the shared ordering store that holds the user's custom order, and the
// Kassalapp API for mutations. Every snapshot coming from the coordinator is
// converted to Items and sorted through the store before it is published, so
// consumers (HTTP, WebSocket, MQTT) always see the user's order.
//
// The Platform discovers shopping lists at startup and creates one Entity per
// list.
//
// Operations on one Entity are serialised. Two entities never share weights:
// each writes only its own list ID in the store.
package todo
