// Package ordering keeps a user-defined order for shopping-list items.
//
// The remote Kassalapp API has no concept of item position, so the order a
// user arranges by drag-and-drop is kept locally as integer sort weights per
// list and applied to every fetched snapshot.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                        Ordering                              │
//	│                                                              │
//	│  ┌──────────────────┐    ┌──────────────────┐                │
//	│  │      Store       │    │       Move       │                │
//	│  │   (store.go)     │    │    (move.go)     │                │
//	│  │ • Weights/Set    │    │ • seed by index  │                │
//	│  │ • SortItems      │    │ • head / after   │                │
//	│  │ • listeners      │    │ • renormalise    │                │
//	│  └────────┬─────────┘    └──────────────────┘                │
//	│           │ Backend                                          │
//	│   ┌───────┴────────┐                                         │
//	│   ▼                ▼                                         │
//	│ FileBackend    SQLiteBackend                                 │
//	└──────────────────────────────────────────────────────────────┘
//
// # Persisted record
//
//	{
//	  "version": 1,
//	  "sort_weights": {
//	    "todo.kassalapp_42": {"weights": {"1001": 0, "1002": 1}}
//	  }
//	}
//
// # Usage
//
//	store := ordering.NewStore(ordering.NewFileBackend(path))
//	if err := store.Load(ctx); err != nil {
//	    return err // corrupt record: do not guess
//	}
//
//	weights, err := ordering.Move(uid, previousUID, displayedUIDs)
//	if err != nil {
//	    return err // ErrReferenceNotFound, store untouched
//	}
//	store.SetWeights(listID, weights)
//	return store.Save(ctx, false)
package ordering
