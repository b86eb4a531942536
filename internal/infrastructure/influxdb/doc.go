// Package influxdb records shopping-list history in InfluxDB v2.
//
// Two measurements are written:
//
//	shopping_list,entity_id=todo.kassalapp_7 items=12i,completed=3i,available=true
//	todo_move,entity_id=todo.kassalapp_7 uid="1001",position=0i
//
// The first after every refresh, the second after every reorder. Writing is
// optional; Connect returns ErrDisabled when the section is disabled and the
// service runs without it.
package influxdb
