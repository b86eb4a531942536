package todo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/nerrad567/kassalapp-todo/internal/coordinator"
	"github.com/nerrad567/kassalapp-todo/internal/kassalapp"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
)

// fakeAPI is an in-memory Kassalapp account.
type fakeAPI struct {
	mu      sync.Mutex
	lists   []kassalapp.ShoppingList
	items   map[int64][]kassalapp.ShoppingListItem
	nextID  int64
	updates []kassalapp.ItemUpdate
	deleted []int64

	fetchErr  error
	listErr   error
	deleteErr map[int64]error

	// onFetch runs at the start of every ShoppingListItems call.
	onFetch func()
	fetches int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		items:     make(map[int64][]kassalapp.ShoppingListItem),
		nextID:    100,
		deleteErr: make(map[int64]error),
	}
}

func (f *fakeAPI) ShoppingLists(context.Context) ([]kassalapp.ShoppingList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]kassalapp.ShoppingList(nil), f.lists...), nil
}

func (f *fakeAPI) ShoppingListItems(_ context.Context, listID int64) ([]kassalapp.ShoppingListItem, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]kassalapp.ShoppingListItem(nil), f.items[listID]...), nil
}

func (f *fakeAPI) AddShoppingListItem(_ context.Context, listID int64, text string, _ int64) (*kassalapp.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := kassalapp.ShoppingListItem{ID: f.nextID, Text: text}
	f.items[listID] = append(f.items[listID], item)
	return &item, nil
}

func (f *fakeAPI) UpdateShoppingListItem(_ context.Context, listID, itemID int64, u kassalapp.ItemUpdate) (*kassalapp.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	for i, it := range f.items[listID] {
		if it.ID != itemID {
			continue
		}
		if u.Text != nil {
			it.Text = *u.Text
		}
		if u.Checked != nil {
			it.Checked = *u.Checked
		}
		f.items[listID][i] = it
		return &it, nil
	}
	return nil, &kassalapp.APIError{StatusCode: 404}
}

func (f *fakeAPI) DeleteShoppingListItem(_ context.Context, listID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[itemID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, itemID)
	kept := f.items[listID][:0]
	for _, it := range f.items[listID] {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	f.items[listID] = kept
	return nil
}

func (f *fakeAPI) deletedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int64(nil), f.deleted...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// memoryBackend is an ordering.Backend kept in memory.
type memoryBackend struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
}

func (b *memoryBackend) Load(context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data, nil
}

func (b *memoryBackend) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.data = append([]byte(nil), data...)
	b.saves++
	return nil
}

func (b *memoryBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

var errBackendDown = errors.New("backend down")

// newTestEntity builds an entity for list 1 with items A(1) B(2) C(3) and
// refreshes it once.
func newTestEntity(t *testing.T) (*Entity, *fakeAPI, *memoryBackend, *ordering.Store) {
	t.Helper()

	api := newFakeAPI()
	api.items[1] = []kassalapp.ShoppingListItem{
		{ID: 1, Text: "A"},
		{ID: 2, Text: "B", Checked: true},
		{ID: 3, Text: "C"},
	}

	backend := &memoryBackend{}
	store := ordering.NewStore(backend)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("store.Load() error = %v", err)
	}

	coord := coordinator.New("Kassalapp 1", 0, func(ctx context.Context) ([]kassalapp.ShoppingListItem, error) {
		return api.ShoppingListItems(ctx, 1)
	})
	e := NewEntity(EntityConfig{
		EntryID:     "entry",
		ListID:      1,
		Title:       "Groceries",
		API:         api,
		Coordinator: coord,
		Store:       store,
	})
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh error = %v", err)
	}
	return e, api, backend, store
}

func uids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.UID
	}
	return out
}
