package mqtt

import "strings"

// TopicPrefix is the root of every topic the service uses.
const TopicPrefix = "kassalapp"

// Topics builds topic strings.
//
//	kassalapp/todo/<entity>/state     retained item snapshot
//	kassalapp/todo/<entity>/command   inbound commands
//	kassalapp/todo/<entity>/ack       command results
//	kassalapp/ordering/state          retained ordering record
//	kassalapp/system/status           online/offline (LWT)
type Topics struct{}

// TodoState is the retained item snapshot of one entity.
func (Topics) TodoState(entityID string) string {
	return TopicPrefix + "/todo/" + entityID + "/state"
}

// TodoCommand is where commands for one entity arrive.
func (Topics) TodoCommand(entityID string) string {
	return TopicPrefix + "/todo/" + entityID + "/command"
}

// TodoAck carries the result of each command.
func (Topics) TodoAck(entityID string) string {
	return TopicPrefix + "/todo/" + entityID + "/ack"
}

// AllTodoCommands matches the command topic of every entity.
func (Topics) AllTodoCommands() string {
	return TopicPrefix + "/todo/+/command"
}

// OrderingState is the retained copy of the ordering record.
func (Topics) OrderingState() string {
	return TopicPrefix + "/ordering/state"
}

// SystemStatus carries online/offline status and the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// ParseTodoCommand extracts the entity ID from a command topic.
func (Topics) ParseTodoCommand(topic string) (entityID string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/todo/")
	if !found {
		return "", false
	}
	entityID, found = strings.CutSuffix(rest, "/command")
	if !found || entityID == "" || strings.Contains(entityID, "/") {
		return "", false
	}
	return entityID, true
}
