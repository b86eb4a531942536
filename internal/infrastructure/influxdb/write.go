package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementShoppingList = "shopping_list"
	MeasurementTodoMove     = "todo_move"
)

// WriteShoppingList records the size of a list after a refresh.
//
// Tags: entity_id. Fields: items, completed, available.
func (c *Client) WriteShoppingList(entityID string, items, completed int, available bool) {
	c.WritePoint(MeasurementShoppingList,
		map[string]string{"entity_id": entityID},
		map[string]any{
			"items":     items,
			"completed": completed,
			"available": available,
		})
}

// WriteMove records one reorder.
//
// uid is a field rather than a tag to keep series cardinality per list.
func (c *Client) WriteMove(entityID, uid string, position int) {
	c.WritePoint(MeasurementTodoMove,
		map[string]string{"entity_id": entityID},
		map[string]any{
			"uid":      uid,
			"position": position,
		})
}

// WritePoint writes an arbitrary point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
