package ordering

import (
	"fmt"
	"sort"
)

// Move computes the weights of a list after moving uid directly behind
// previousUID. An empty previousUID moves uid to the head of the list.
//
// current is the order the user was looking at when the move was made. The
// computation starts from that order, not from stored weights, so the result
// always matches what was displayed. Weights in the result are dense:
// exactly 0..len(current)-1.
//
// Move is pure. On error nothing is returned and the caller's store is left
// untouched.
//
// Parameters:
//   - uid: item being moved
//   - previousUID: item that should end up directly before uid, or ""
//   - current: displayed item UIDs, first to last
//
// Returns:
//   - Weights: new weights for every item in current
//   - error: ErrItemNotFound or ErrReferenceNotFound
func Move(uid, previousUID string, current []string) (Weights, error) {
	if len(current) == 0 {
		return Weights{}, nil
	}

	// Seed from display position. Duplicated UIDs keep their first position.
	weights := make(Weights, len(current))
	order := make([]string, 0, len(current))
	for i, id := range current {
		if _, seen := weights[id]; seen {
			continue
		}
		weights[id] = i
		order = append(order, id)
	}

	if _, ok := weights[uid]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, uid)
	}

	if uid == previousUID {
		return renormalise(weights, order), nil
	}

	if previousUID == "" {
		lowest := weights[order[0]]
		for _, w := range weights {
			if w < lowest {
				lowest = w
			}
		}
		weights[uid] = lowest - 1
		return renormalise(weights, order), nil
	}

	target, ok := weights[previousUID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, previousUID)
	}

	// Open a gap directly after the anchor.
	for id, w := range weights {
		if w > target {
			weights[id] = w + 1
		}
	}
	weights[uid] = target + 1

	return renormalise(weights, order), nil
}

// renormalise rewrites weights to 0..n-1 preserving their order. order fixes
// the tie-break so the result does not depend on map iteration.
func renormalise(weights Weights, order []string) Weights {
	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return weights[ranked[i]] < weights[ranked[j]]
	})

	out := make(Weights, len(ranked))
	for i, id := range ranked {
		out[id] = i
	}
	return out
}
