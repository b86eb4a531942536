// Package mqtt connects the service to an MQTT broker.
//
// The broker is optional. When enabled, every to-do entity's items are
// published as retained state, the ordering record is mirrored, and commands
// (create, update, delete, move, reset) are accepted per entity. Topic layout
// is documented on Topics.
//
// A retained offline message is registered as Last Will so subscribers can
// tell a crash from a graceful shutdown.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllTodoCommands(), 1, handleCommand)
package mqtt
