// Package bridge mirrors the to-do entities onto MQTT.
//
// Outbound, every entity event republishes the entity's retained state and
// every ordering change republishes the ordering record. Inbound, commands
// on kassalapp/todo/<entity>/command are executed against the entity and
// answered with an acknowledgement on kassalapp/todo/<entity>/ack.
//
// Command payload:
//
//	{"id": "c1", "action": "move", "uid": "42", "previous_uid": "17"}
//
// Actions: create, update, delete, move, reset.
package bridge
