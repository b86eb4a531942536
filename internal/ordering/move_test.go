package ordering

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		uid      string
		previous string
		current  []string
		want     Weights
	}{
		{
			name:    "move to head",
			uid:     "C",
			current: []string{"A", "B", "C"},
			want:    Weights{"C": 0, "A": 1, "B": 2},
		},
		{
			name:     "move after",
			uid:      "A",
			previous: "C",
			current:  []string{"A", "B", "C"},
			want:     Weights{"B": 0, "C": 1, "A": 2},
		},
		{
			name:     "move backwards after",
			uid:      "D",
			previous: "A",
			current:  []string{"A", "B", "C", "D"},
			want:     Weights{"A": 0, "D": 1, "B": 2, "C": 3},
		},
		{
			name:     "already in place",
			uid:      "B",
			previous: "A",
			current:  []string{"A", "B", "C"},
			want:     Weights{"A": 0, "B": 1, "C": 2},
		},
		{
			name:     "moved after itself is a no-op",
			uid:      "B",
			previous: "B",
			current:  []string{"A", "B", "C"},
			want:     Weights{"A": 0, "B": 1, "C": 2},
		},
		{
			name:    "only item",
			uid:     "A",
			current: []string{"A"},
			want:    Weights{"A": 0},
		},
		{
			name:    "head already at head",
			uid:     "A",
			current: []string{"A", "B"},
			want:    Weights{"A": 0, "B": 1},
		},
		{
			name:    "empty ordering",
			uid:     "A",
			current: nil,
			want:    Weights{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Move(tt.uid, tt.previous, tt.current)
			if err != nil {
				t.Fatalf("Move() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Move() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMove_Errors(t *testing.T) {
	tests := []struct {
		name     string
		uid      string
		previous string
		wantErr  error
	}{
		{"unknown anchor", "A", "missing", ErrReferenceNotFound},
		{"unknown item", "missing", "A", ErrItemNotFound},
		{"unknown item to head", "missing", "", ErrItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Move(tt.uid, tt.previous, []string{"A", "B", "C"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Move() error = %v, want %v", err, tt.wantErr)
			}
			if got != nil {
				t.Errorf("Move() weights = %v, want nil on error", got)
			}
		})
	}
}

func TestMove_DenseAfterManyMoves(t *testing.T) {
	current := make([]string, 20)
	for i := range current {
		current[i] = fmt.Sprintf("item-%02d", i)
	}

	for round := 0; round < 200; round++ {
		uid := current[(round*7)%len(current)]
		previous := ""
		if round%3 != 0 {
			previous = current[(round*11)%len(current)]
		}

		weights, err := Move(uid, previous, current)
		if err != nil {
			t.Fatalf("round %d: Move() error = %v", round, err)
		}

		highest := maxWeight(weights)
		if highest >= len(current) {
			t.Fatalf("round %d: max weight %d, want < %d", round, highest, len(current))
		}
		if len(weights) != len(current) {
			t.Fatalf("round %d: %d weights for %d items", round, len(weights), len(current))
		}

		current = orderOf(weights)
	}
}

func TestMove_DoesNotMutateInput(t *testing.T) {
	current := []string{"A", "B", "C"}
	if _, err := Move("C", "", current); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, current); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

// orderOf lists the UIDs of w by ascending weight.
func orderOf(w Weights) []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return w[ids[i]] < w[ids[j]] })
	return ids
}

func maxWeight(w Weights) int {
	highest := 0
	for _, v := range w {
		if v > highest {
			highest = v
		}
	}
	return highest
}
