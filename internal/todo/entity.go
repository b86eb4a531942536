package todo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/kassalapp-todo/internal/coordinator"
	"github.com/nerrad567/kassalapp-todo/internal/kassalapp"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
)

// EntityIDPrefix prefixes the shopping list ID to form the entity ID.
const EntityIDPrefix = "todo.kassalapp_"

// maxConcurrentDeletes bounds parallel DELETE requests for one call.
const maxConcurrentDeletes = 4

// API is the subset of the Kassalapp client used by entities.
type API interface {
	ShoppingLists(ctx context.Context) ([]kassalapp.ShoppingList, error)
	ShoppingListItems(ctx context.Context, listID int64) ([]kassalapp.ShoppingListItem, error)
	AddShoppingListItem(ctx context.Context, listID int64, text string, productID int64) (*kassalapp.ShoppingListItem, error)
	UpdateShoppingListItem(ctx context.Context, listID, itemID int64, update kassalapp.ItemUpdate) (*kassalapp.ShoppingListItem, error)
	DeleteShoppingListItem(ctx context.Context, listID, itemID int64) error
}

// Logger is the logging surface used by entities and the platform.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventKind says what changed on an entity.
type EventKind string

// Event kinds.
const (
	EventItemsUpdated EventKind = "items_updated"
	EventItemMoved    EventKind = "item_moved"
	EventOrderReset   EventKind = "order_reset"
)

// Event is delivered to entity listeners after every change of the
// displayed items.
type Event struct {
	Kind      EventKind `json:"kind"`
	EntityID  string    `json:"entity_id"`
	Items     []Item    `json:"items"`
	Available bool      `json:"available"`
	// MovedUID is set for EventItemMoved.
	MovedUID string `json:"moved_uid,omitempty"`
}

// ItemsCoordinator polls the items of one shopping list.
type ItemsCoordinator = coordinator.Coordinator[[]kassalapp.ShoppingListItem]

// EntityID returns the entity ID of a shopping list.
func EntityID(listID int64) string {
	return EntityIDPrefix + strconv.FormatInt(listID, 10)
}

// Entity is one shopping list exposed as a to-do list.
//
// Thread Safety: All methods are safe for concurrent use. Mutating operations
// (create, update, delete, move, reset) run one at a time per entity.
type Entity struct {
	entityID string
	uniqueID string
	title    string
	listID   int64

	api         API
	coordinator *ItemsCoordinator
	store       *ordering.Store
	logger      Logger

	opMu sync.Mutex

	mu    sync.RWMutex
	items []Item

	listenersMu sync.Mutex
	listeners   map[int]func(Event)
	nextID      int

	removeCoordinatorListener func()
}

// EntityConfig holds what NewEntity needs.
type EntityConfig struct {
	EntryID     string
	ListID      int64
	Title       string
	API         API
	Coordinator *ItemsCoordinator
	Store       *ordering.Store
	Logger      Logger
}

// NewEntity creates an entity and subscribes it to its coordinator.
func NewEntity(cfg EntityConfig) *Entity {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	e := &Entity{
		entityID:    EntityID(cfg.ListID),
		uniqueID:    fmt.Sprintf("%s-%d", cfg.EntryID, cfg.ListID),
		title:       cfg.Title,
		listID:      cfg.ListID,
		api:         cfg.API,
		coordinator: cfg.Coordinator,
		store:       cfg.Store,
		logger:      logger,
		listeners:   make(map[int]func(Event)),
	}
	e.removeCoordinatorListener = cfg.Coordinator.AddListener(e.HandleCoordinatorUpdate)
	return e
}

// EntityID returns the stable entity ID, also used as the ordering list ID.
func (e *Entity) EntityID() string { return e.entityID }

// UniqueID returns "<entry id>-<list id>".
func (e *Entity) UniqueID() string { return e.uniqueID }

// Title returns the shopping list title.
func (e *Entity) Title() string { return e.title }

// ListID returns the Kassalapp shopping list ID.
func (e *Entity) ListID() int64 { return e.listID }

// SupportedFeatures returns the operations the entity supports.
func (e *Entity) SupportedFeatures() Feature { return SupportedFeatures }

// Coordinator returns the entity's coordinator.
func (e *Entity) Coordinator() *ItemsCoordinator { return e.coordinator }

// Available reports whether the last refresh succeeded.
func (e *Entity) Available() bool {
	return e.coordinator.LastUpdateSuccess()
}

// Items returns the displayed items in order. nil means no data yet.
func (e *Entity) Items() []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.items == nil {
		return nil
	}
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out
}

// Item returns the displayed item with uid.
func (e *Entity) Item(uid string) (Item, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, it := range e.items {
		if it.UID == uid {
			return it, true
		}
	}
	return Item{}, false
}

// AddListener registers fn for entity events. The returned function removes
// it again.
func (e *Entity) AddListener(fn func(Event)) (remove func()) {
	e.listenersMu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.listenersMu.Unlock()

	return func() {
		e.listenersMu.Lock()
		delete(e.listeners, id)
		e.listenersMu.Unlock()
	}
}

// Close unsubscribes the entity from its coordinator.
func (e *Entity) Close() {
	if e.removeCoordinatorListener != nil {
		e.removeCoordinatorListener()
	}
}

// HandleCoordinatorUpdate rebuilds the displayed items from the latest
// coordinator data, sorted by the stored weights.
func (e *Entity) HandleCoordinatorUpdate() {
	data, ok := e.coordinator.Data()

	var items []Item
	if ok {
		items = make([]Item, 0, len(data))
		for _, remote := range data {
			items = append(items, ItemFromRemote(remote))
		}
		items = ordering.SortItems(e.store, e.entityID, items)
	}

	e.mu.Lock()
	e.items = items
	e.mu.Unlock()

	e.emit(Event{Kind: EventItemsUpdated})
}

// CreateItem adds an item to the shopping list and refreshes.
func (e *Entity) CreateItem(ctx context.Context, summary string, productID int64) error {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return ErrEmptySummary
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	if _, err := e.api.AddShoppingListItem(ctx, e.listID, summary, productID); err != nil {
		return fmt.Errorf("creating item on %s: %w", e.entityID, err)
	}
	e.logger.Info("item created", "entity", e.entityID)
	e.refresh(ctx)
	return nil
}

// UpdateItem sends the set fields of update and refreshes.
func (e *Entity) UpdateItem(ctx context.Context, update ItemUpdate) error {
	itemID, err := parseUID(update.UID)
	if err != nil {
		return err
	}
	if update.Status != nil && !update.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *update.Status)
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	if _, err := e.api.UpdateShoppingListItem(ctx, e.listID, itemID, toRemoteUpdate(update)); err != nil {
		return fmt.Errorf("updating item %s on %s: %w", update.UID, e.entityID, err)
	}
	e.logger.Info("item updated", "entity", e.entityID, "uid", update.UID)
	e.refresh(ctx)
	return nil
}

// DeleteItems deletes uids concurrently, then refreshes. The refresh runs
// even when a delete failed, so partially applied deletes become visible.
func (e *Entity) DeleteItems(ctx context.Context, uids []string) error {
	ids := make([]int64, 0, len(uids))
	for _, uid := range uids {
		id, err := parseUID(uid)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDeletes)
	for _, id := range ids {
		g.Go(func() error {
			if err := e.api.DeleteShoppingListItem(gctx, e.listID, id); err != nil {
				return fmt.Errorf("deleting item %d on %s: %w", id, e.entityID, err)
			}
			return nil
		})
	}
	err := g.Wait()

	e.logger.Info("items deleted", "entity", e.entityID, "count", len(ids), "error", err)
	e.refresh(ctx)
	return err
}

// MoveItem places uid directly after previousUID ("" means first) in the
// order currently displayed, persists the new weights and re-sorts.
//
// When the move is rejected (unknown item or anchor) the store is left
// untouched. The weights are saved before the refresh is requested.
func (e *Entity) MoveItem(ctx context.Context, uid, previousUID string) error {
	if uid == previousUID {
		return nil
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.RLock()
	if e.items == nil {
		e.mu.RUnlock()
		return ErrListUnavailable
	}
	current := make([]string, len(e.items))
	for i, it := range e.items {
		current[i] = it.UID
	}
	e.mu.RUnlock()

	weights, err := ordering.Move(uid, previousUID, current)
	if err != nil {
		return fmt.Errorf("moving %s after %q in %s: %w", uid, previousUID, e.entityID, err)
	}

	e.store.SetWeights(e.entityID, weights)
	if err := e.store.Save(ctx, false); err != nil {
		return fmt.Errorf("persisting order of %s: %w", e.entityID, err)
	}

	e.resort()
	e.logger.Debug("item moved", "entity", e.entityID, "uid", uid, "previous_uid", previousUID)
	e.emit(Event{Kind: EventItemMoved, MovedUID: uid})

	e.refresh(ctx)
	return nil
}

// ResetOrder drops the custom order so items show in API order again.
func (e *Entity) ResetOrder(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.store.ClearWeights(e.entityID)
	if err := e.store.Updated(ctx); err != nil {
		return fmt.Errorf("resetting order of %s: %w", e.entityID, err)
	}

	// Back to API order: rebuild from coordinator data.
	data, ok := e.coordinator.Data()
	if ok {
		items := make([]Item, 0, len(data))
		for _, remote := range data {
			items = append(items, ItemFromRemote(remote))
		}
		e.mu.Lock()
		e.items = items
		e.mu.Unlock()
	}

	e.logger.Info("item order reset", "entity", e.entityID)
	e.emit(Event{Kind: EventOrderReset})
	return nil
}

// resort re-applies the stored weights to the displayed items.
func (e *Entity) resort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.items != nil {
		e.items = ordering.SortItems(e.store, e.entityID, e.items)
	}
}

// refresh asks the coordinator for fresh data. Failures are logged; the
// mutation that triggered it already succeeded.
func (e *Entity) refresh(ctx context.Context) {
	if err := e.coordinator.Refresh(ctx); err != nil {
		e.logger.Warn("refresh after change failed", "entity", e.entityID, "error", err)
	}
}

func (e *Entity) emit(ev Event) {
	ev.EntityID = e.entityID
	ev.Items = e.Items()
	ev.Available = e.Available()

	e.listenersMu.Lock()
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.listeners[id])
	}
	e.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
