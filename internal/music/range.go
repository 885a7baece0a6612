package music

import (
	"fmt"
	"sync"
)

// NotesRange is an inclusive span of notes.
type NotesRange struct {
	Lowest  Note
	Highest Note

	// AllNotes results per key; "" caches the chromatic list.
	allNotes sync.Map
}

// NewNotesRange builds a range and rejects one whose top is below its bottom.
func NewNotesRange(lowest, highest Note) (*NotesRange, error) {
	if highest < lowest {
		return nil, fmt.Errorf("invalid note range %s-%s", lowest.Name(), highest.Name())
	}
	return &NotesRange{Lowest: lowest, Highest: highest}, nil
}

// ParseNotesRange is NewNotesRange for note names.
func ParseNotesRange(lowest, highest string) (*NotesRange, error) {
	lo, err := ParseNote(lowest)
	if err != nil {
		return nil, err
	}
	hi, err := ParseNote(highest)
	if err != nil {
		return nil, err
	}
	return NewNotesRange(lo, hi)
}

// Size returns the distance between the range ends in semitones.
func (r *NotesRange) Size() int {
	return int(r.Highest - r.Lowest)
}

// Contains reports whether every given note lies within the range.
func (r *NotesRange) Contains(notes ...Note) bool {
	for _, n := range notes {
		if n < r.Lowest || n > r.Highest {
			return false
		}
	}
	return true
}

// AllNotes lists the notes of the range in ascending order, keeping only
// those in key when key is non-empty. The returned slice is shared; callers
// must not modify it.
func (r *NotesRange) AllNotes(key Key) []Note {
	if cached, ok := r.allNotes.Load(key); ok {
		return cached.([]Note)
	}
	var notes []Note
	for n := r.Lowest; n <= r.Highest; n++ {
		if key != "" && !IsInKey(n, key) {
			continue
		}
		notes = append(notes, n)
	}
	actual, _ := r.allNotes.LoadOrStore(key, notes)
	return actual.([]Note)
}

func (r *NotesRange) String() string {
	return r.Lowest.Name() + "-" + r.Highest.Name()
}
