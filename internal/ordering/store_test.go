package ordering

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// memoryBackend is an in-memory Backend that can be told to fail.
type memoryBackend struct {
	data    []byte
	saves   int
	loadErr error
	saveErr error
}

func (b *memoryBackend) Load(context.Context) ([]byte, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.data, nil
}

func (b *memoryBackend) Save(_ context.Context, data []byte) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.data = append([]byte(nil), data...)
	b.saves++
	return nil
}

type item string

func (i item) ItemUID() string { return string(i) }

func loadedStore(t *testing.T, backend *memoryBackend) *Store {
	t.Helper()
	s := NewStore(backend)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestStore_LoadAbsentCreatesRecord(t *testing.T) {
	backend := &memoryBackend{}
	s := loadedStore(t, backend)

	if backend.saves != 1 {
		t.Fatalf("saves after first Load = %d, want 1", backend.saves)
	}
	if !s.Loaded() {
		t.Error("Loaded() = false after Load")
	}

	rec, err := decodeRecord(backend.data)
	if err != nil {
		t.Fatalf("persisted record does not decode: %v", err)
	}
	if rec.Version != StorageVersion || len(rec.SortWeights) != 0 {
		t.Errorf("persisted record = %+v, want empty version %d", rec, StorageVersion)
	}
}

func TestStore_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		backend *memoryBackend
		wantErr error
	}{
		{"malformed json", &memoryBackend{data: []byte(`{"version": 1, "sort_weights": [`)}, ErrCorruptRecord},
		{"wrong shape", &memoryBackend{data: []byte(`{"version": 1, "sort_weights": {"l": {"weights": {"a": "x"}}}}`)}, ErrCorruptRecord},
		{"missing version", &memoryBackend{data: []byte(`{"sort_weights": {}}`)}, ErrCorruptRecord},
		{"newer version", &memoryBackend{data: []byte(`{"version": 2, "sort_weights": {}}`)}, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := append([]byte(nil), tt.backend.data...)
			s := NewStore(tt.backend)

			err := s.Load(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if s.Loaded() {
				t.Error("store reports loaded after failed Load")
			}
			if tt.backend.saves != 0 || string(tt.backend.data) != string(original) {
				t.Error("failed Load overwrote the persisted record")
			}
			if err := s.Save(context.Background(), true); !errors.Is(err, ErrNotLoaded) {
				t.Errorf("Save() after failed Load error = %v, want ErrNotLoaded", err)
			}
		})
	}
}

func TestStore_LoadBackendError(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewStore(&memoryBackend{loadErr: boom})

	if err := s.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want wrapped %v", err, boom)
	}
}

func TestStore_WeightsRegistersEmptyMap(t *testing.T) {
	s := loadedStore(t, &memoryBackend{})

	w := s.Weights("todo.kassalapp_1")
	if w == nil || len(w) != 0 {
		t.Fatalf("Weights() = %v, want empty non-nil map", w)
	}
	if _, ok := s.Snapshot().SortWeights["todo.kassalapp_1"]; !ok {
		t.Error("list not registered after Weights()")
	}
	if s.Dirty() {
		t.Error("lazy registration should not mark dirty")
	}

	// The returned map is a copy.
	w["x"] = 5
	if _, ok := s.Weights("todo.kassalapp_1")["x"]; ok {
		t.Error("mutating the returned map changed the store")
	}
}

func TestStore_SetWeightsAndSave(t *testing.T) {
	backend := &memoryBackend{}
	s := loadedStore(t, backend)
	ctx := context.Background()

	s.SetWeights("list", Weights{"a": 1, "b": 0})
	if backend.saves != 1 {
		t.Fatal("SetWeights must not write")
	}
	if !s.Dirty() {
		t.Error("SetWeights should mark dirty")
	}

	if err := s.Save(ctx, false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if backend.saves != 2 || s.Dirty() {
		t.Errorf("saves = %d dirty = %v, want 2/false", backend.saves, s.Dirty())
	}

	// Clean store: unforced save is skipped, forced save writes.
	if err := s.Save(ctx, false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if backend.saves != 2 {
		t.Errorf("clean Save wrote: saves = %d", backend.saves)
	}
	if err := s.Save(ctx, true); err != nil {
		t.Fatalf("Save(force) error = %v", err)
	}
	if backend.saves != 3 {
		t.Errorf("forced Save skipped: saves = %d", backend.saves)
	}
}

func TestStore_SaveFailureKeepsDirty(t *testing.T) {
	backend := &memoryBackend{}
	s := loadedStore(t, backend)
	ctx := context.Background()

	backend.saveErr = errors.New("read-only filesystem")
	s.SetWeights("list", Weights{"a": 0})

	if err := s.Save(ctx, false); err == nil {
		t.Fatal("Save() expected error")
	}
	if !s.Dirty() {
		t.Fatal("dirty flag cleared by failed save")
	}

	backend.saveErr = nil
	if err := s.Save(ctx, false); err != nil {
		t.Fatalf("retry Save() error = %v", err)
	}
	if s.Dirty() {
		t.Error("dirty flag not cleared by successful save")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	backend := &memoryBackend{}
	s := loadedStore(t, backend)
	ctx := context.Background()

	want := Weights{"1001": 0, "1002": 2, "1003": 1}
	s.SetWeights("todo.kassalapp_42", want)
	if err := s.Save(ctx, false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reopened := loadedStore(t, backend)
	if diff := cmp.Diff(want, reopened.Weights("todo.kassalapp_42")); diff != "" {
		t.Errorf("weights after reload (-want +got):\n%s", diff)
	}
}

func TestStore_ClearWeights(t *testing.T) {
	s := loadedStore(t, &memoryBackend{})

	s.ClearWeights("unknown")
	if s.Dirty() {
		t.Error("clearing an unknown list should not mark dirty")
	}

	s.SetWeights("list", Weights{"a": 0})
	if err := s.Save(context.Background(), false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.ClearWeights("list")
	if len(s.Weights("list")) != 0 || !s.Dirty() {
		t.Errorf("after ClearWeights: weights=%v dirty=%v", s.Weights("list"), s.Dirty())
	}
}

func TestStore_UpdatedNotifiesThenSaves(t *testing.T) {
	backend := &memoryBackend{}
	s := loadedStore(t, backend)

	var got []Record
	savesSeen := -1
	remove := s.AddListener(func(r Record) {
		got = append(got, r)
		savesSeen = backend.saves
		_ = s.Weights("list") // reading from a listener must not deadlock
	})

	s.SetWeights("list", Weights{"a": 0})
	if err := s.Updated(context.Background()); err != nil {
		t.Fatalf("Updated() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("listener calls = %d, want 1", len(got))
	}
	if diff := cmp.Diff(Weights{"a": 0}, got[0].SortWeights["list"].Weights); diff != "" {
		t.Errorf("snapshot weights (-want +got):\n%s", diff)
	}
	if savesSeen != 1 || backend.saves != 2 {
		t.Errorf("listener saw %d saves, total %d; want notify before save", savesSeen, backend.saves)
	}

	remove()
	remove()
	if err := s.Updated(context.Background()); err != nil {
		t.Fatalf("Updated() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("removed listener still called")
	}
}

func TestSortItems(t *testing.T) {
	s := loadedStore(t, &memoryBackend{})
	s.SetWeights("list", Weights{"c": 0, "a": 1})

	input := []item{"a", "x", "b", "c", "y"}
	got := SortItems(s, "list", input)

	if diff := cmp.Diff([]item{"c", "a", "x", "b", "y"}, got); diff != "" {
		t.Errorf("SortItems() (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]item{"a", "x", "b", "c", "y"}, input); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestSortItems_Idempotent(t *testing.T) {
	s := loadedStore(t, &memoryBackend{})
	s.SetWeights("list", Weights{"b": 0, "d": 1, "a": 2})

	once := SortItems(s, "list", []item{"a", "b", "c", "d", "e"})
	twice := SortItems(s, "list", once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second sort changed order (-once +twice):\n%s", diff)
	}
}

func TestSortItems_UnknownListKeepsOrder(t *testing.T) {
	s := loadedStore(t, &memoryBackend{})
	input := []item{"z", "y", "x"}

	if diff := cmp.Diff(input, SortItems(s, "fresh", input)); diff != "" {
		t.Errorf("unweighted list reordered (-want +got):\n%s", diff)
	}
}

func TestStore_MoveThenSortMatchesMove(t *testing.T) {
	s := loadedStore(t, &memoryBackend{})
	displayed := []item{"A", "B", "C"}

	weights, err := Move("A", "C", []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	s.SetWeights("list", weights)

	if diff := cmp.Diff([]item{"B", "C", "A"}, SortItems(s, "list", displayed)); diff != "" {
		t.Errorf("sorted after move (-want +got):\n%s", diff)
	}
}
