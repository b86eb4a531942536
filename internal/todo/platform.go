package todo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/kassalapp-todo/internal/coordinator"
	"github.com/nerrad567/kassalapp-todo/internal/kassalapp"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
)

// PlatformConfig configures a Platform.
type PlatformConfig struct {
	// EntryID scopes entity unique IDs.
	EntryID string

	API   API
	Store *ordering.Store

	// Interval between coordinator refreshes. Zero selects the coordinator
	// default.
	Interval time.Duration

	// OnRefresh, when set, observes every coordinator refresh.
	OnRefresh func(entityID string, result coordinator.RefreshResult)

	Logger Logger
}

// Platform owns one Entity per shopping list.
type Platform struct {
	cfg    PlatformConfig
	logger Logger

	mu       sync.RWMutex
	entities map[string]*Entity
	order    []string

	listenersMu sync.Mutex
	listeners   []func(Event)
}

// NewPlatform creates an empty platform. Call Setup to discover lists.
func NewPlatform(cfg PlatformConfig) *Platform {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Platform{
		cfg:      cfg,
		logger:   logger,
		entities: make(map[string]*Entity),
	}
}

// Setup fetches the shopping lists and creates an entity for each. Every
// entity is refreshed once before it is registered; a failed first refresh
// leaves that entity unavailable but does not fail Setup.
//
// Returns an error only when the shopping lists cannot be listed.
func (p *Platform) Setup(ctx context.Context) error {
	lists, err := p.cfg.API.ShoppingLists(ctx)
	if err != nil {
		return fmt.Errorf("listing shopping lists: %w", err)
	}

	for _, list := range lists {
		entityID := EntityID(list.ID)
		p.mu.RLock()
		_, dup := p.entities[entityID]
		p.mu.RUnlock()
		if dup {
			p.logger.Warn("duplicate shopping list skipped", "entity", entityID, "title", list.Title)
			continue
		}

		e := p.newEntity(list)

		// The entity's coordinator listener rebuilds its items whether or
		// not the refresh succeeds.
		if err := e.Coordinator().Refresh(ctx); err != nil {
			p.logger.Warn("initial refresh failed", "entity", e.EntityID(), "error", err)
		}

		p.mu.Lock()
		p.order = append(p.order, e.EntityID())
		p.entities[e.EntityID()] = e
		p.mu.Unlock()

		p.logger.Info("to-do entity added", "entity", e.EntityID(), "title", e.Title(), "items", len(e.Items()))
	}
	return nil
}

func (p *Platform) newEntity(list kassalapp.ShoppingList) *Entity {
	listID := list.ID
	entityID := EntityID(listID)

	coord := coordinator.New(
		fmt.Sprintf("Kassalapp %d", listID),
		p.cfg.Interval,
		func(ctx context.Context) ([]kassalapp.ShoppingListItem, error) {
			return p.cfg.API.ShoppingListItems(ctx, listID)
		},
	)
	coord.SetLogger(p.logger)
	if p.cfg.OnRefresh != nil {
		coord.SetObserver(func(r coordinator.RefreshResult) {
			p.cfg.OnRefresh(entityID, r)
		})
	}

	e := NewEntity(EntityConfig{
		EntryID:     p.cfg.EntryID,
		ListID:      listID,
		Title:       list.Title,
		API:         p.cfg.API,
		Coordinator: coord,
		Store:       p.cfg.Store,
		Logger:      p.logger,
	})
	e.AddListener(p.emit)
	return e
}

// AddListener registers fn for events of every entity, current and future.
func (p *Platform) AddListener(fn func(Event)) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *Platform) emit(ev Event) {
	p.listenersMu.Lock()
	fns := make([]func(Event), len(p.listeners))
	copy(fns, p.listeners)
	p.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Entities returns the entities in discovery order.
func (p *Platform) Entities() []*Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Entity, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entities[id])
	}
	return out
}

// Entity looks up an entity by entity ID.
func (p *Platform) Entity(entityID string) (*Entity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entities[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	return e, nil
}

// EntityIDs returns the known entity IDs, sorted.
func (p *Platform) EntityIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.entities))
	for id := range p.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start begins polling for every entity.
func (p *Platform) Start(ctx context.Context) {
	for _, e := range p.Entities() {
		e.Coordinator().Start(ctx)
	}
}

// Stop stops polling and detaches entities from their coordinators.
func (p *Platform) Stop() {
	for _, e := range p.Entities() {
		e.Coordinator().Stop()
		e.Close()
	}
}
