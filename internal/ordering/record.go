package ordering

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StorageVersion is the version written into every persisted record.
const StorageVersion = 1

// Weights maps an item UID to its integer sort weight within one list.
// Lower weights sort first; UIDs absent from the map sort last.
type Weights map[string]int

// Clone returns an independent copy. A nil map clones to an empty map.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// ListWeights is the per-list entry of the persisted record.
type ListWeights struct {
	Weights Weights `json:"weights"`
}

// Record is the versioned document persisted by a Backend.
type Record struct {
	Version     int                     `json:"version"`
	SortWeights map[string]*ListWeights `json:"sort_weights"`
}

// NewRecord returns an empty record at the current storage version.
func NewRecord() *Record {
	return &Record{
		Version:     StorageVersion,
		SortWeights: make(map[string]*ListWeights),
	}
}

// Clone returns a deep copy of the record, safe to hand to listeners.
func (r *Record) Clone() Record {
	out := Record{
		Version:     r.Version,
		SortWeights: make(map[string]*ListWeights, len(r.SortWeights)),
	}
	for id, lw := range r.SortWeights {
		out.SortWeights[id] = &ListWeights{Weights: lw.Weights.Clone()}
	}
	return out
}

// encodeRecord serialises a record for a Backend.
func encodeRecord(r *Record) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding ordering record: %w", err)
	}
	return data, nil
}

// decodeRecord parses backend bytes.
//
// A JSON null is treated like an absent record (nil, nil). Anything else that
// does not decode to a record at a known version is an error; the caller must
// not replace it with an empty record.
func decodeRecord(data []byte) (*Record, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}

	var r *Record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if r == nil {
		return nil, nil
	}

	switch {
	case r.Version < 1:
		return nil, fmt.Errorf("%w: missing version", ErrCorruptRecord)
	case r.Version > StorageVersion:
		return nil, fmt.Errorf("%w: got %d, support up to %d", ErrUnsupportedVersion, r.Version, StorageVersion)
	}

	if r.SortWeights == nil {
		r.SortWeights = make(map[string]*ListWeights)
	}
	for id, lw := range r.SortWeights {
		if lw == nil {
			r.SortWeights[id] = &ListWeights{Weights: Weights{}}
			continue
		}
		if lw.Weights == nil {
			lw.Weights = Weights{}
		}
	}
	return r, nil
}
