// Package telemetry turns coordinator refreshes and to-do entity events into
// Prometheus metrics and, optionally, InfluxDB points.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/kassalapp-todo/internal/coordinator"
	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

// Prometheus metric names.
const (
	MetricRefreshTotal           = "kassalapp_refresh_total"
	MetricRefreshDurationSeconds = "kassalapp_refresh_duration_seconds"
	MetricItems                  = "kassalapp_items"
	MetricMovesTotal             = "kassalapp_moves_total"
)

// Refresh results used as label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// PointWriter is the InfluxDB surface used by the recorder.
type PointWriter interface {
	WriteShoppingList(entityID string, items, completed int, available bool)
	WriteMove(entityID, uid string, position int)
}

// Recorder owns a private Prometheus registry.
//
// Thread Safety: Safe for concurrent use; collectors are goroutine safe and
// the point writer is set once before use.
type Recorder struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	items           *prometheus.GaugeVec
	movesTotal      *prometheus.CounterVec

	points PointWriter
}

// NewRecorder creates a recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRefreshTotal,
			Help: "Shopping list refreshes by result.",
		}, []string{"entity", "result"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRefreshDurationSeconds,
			Help:    "Time spent fetching a shopping list.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricItems,
			Help: "Items currently on a shopping list by status.",
		}, []string{"entity", "status"}),
		movesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMovesTotal,
			Help: "Items reordered by users.",
		}, []string{"entity"}),
	}

	r.registry.MustRegister(
		r.refreshTotal,
		r.refreshDuration,
		r.items,
		r.movesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// SetPointWriter enables InfluxDB points. Call before wiring the recorder.
func (r *Recorder) SetPointWriter(w PointWriter) {
	r.points = w
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveRefresh records one coordinator refresh of entityID.
func (r *Recorder) ObserveRefresh(entityID string, result coordinator.RefreshResult) {
	outcome := ResultSuccess
	if result.Err != nil {
		outcome = ResultFailure
	}
	r.refreshTotal.WithLabelValues(entityID, outcome).Inc()
	r.refreshDuration.WithLabelValues(entityID).Observe(result.Duration.Seconds())
}

// ObserveEvent records the item counts carried by ev and, for moves, the
// move itself.
func (r *Recorder) ObserveEvent(ev todo.Event) {
	var completed, open int
	for _, it := range ev.Items {
		if it.Status == todo.StatusCompleted {
			completed++
		} else {
			open++
		}
	}
	r.items.WithLabelValues(ev.EntityID, string(todo.StatusNeedsAction)).Set(float64(open))
	r.items.WithLabelValues(ev.EntityID, string(todo.StatusCompleted)).Set(float64(completed))

	if r.points != nil && ev.Kind == todo.EventItemsUpdated {
		r.points.WriteShoppingList(ev.EntityID, len(ev.Items), completed, ev.Available)
	}

	if ev.Kind != todo.EventItemMoved {
		return
	}
	r.movesTotal.WithLabelValues(ev.EntityID).Inc()
	if r.points != nil {
		r.points.WriteMove(ev.EntityID, ev.MovedUID, position(ev.Items, ev.MovedUID))
	}
}

// position returns the index of uid in items, or -1.
func position(items []todo.Item, uid string) int {
	for i, it := range items {
		if it.UID == uid {
			return i
		}
	}
	return -1
}
