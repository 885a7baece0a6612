// Package music holds the note and key helpers the exercises build questions with.
package music

import (
	"fmt"
	"strconv"
	"strings"
)

// Note is a MIDI note number. Middle C (C4) is 60.
type Note int

const (
	MinNote Note = 0
	MaxNote Note = 127
)

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterPitch = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote converts a note name such as "C4", "F#3" or "Bb2" to a Note.
func ParseNote(name string) (Note, error) {
	pc, rest, err := parsePitchClass(name)
	if err != nil {
		return 0, err
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note %q", name)
	}
	n := Note((octave+1)*12 + pc)
	if n < MinNote || n > MaxNote {
		return 0, fmt.Errorf("note %q out of MIDI range", name)
	}
	return n, nil
}

// MustParseNote is like ParseNote but panics on error.
func MustParseNote(name string) Note {
	n, err := ParseNote(name)
	if err != nil {
		panic(err)
	}
	return n
}

// MustParseNotes parses every name with MustParseNote.
func MustParseNotes(names ...string) []Note {
	notes := make([]Note, len(names))
	for i, name := range names {
		notes[i] = MustParseNote(name)
	}
	return notes
}

// parsePitchClass reads the letter and accidentals at the start of s and
// returns the pitch class (0..11, possibly wrapped) with the unparsed tail.
func parsePitchClass(s string) (int, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", fmt.Errorf("empty note name")
	}
	pc, ok := letterPitch[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, "", fmt.Errorf("invalid note letter in %q", s)
	}
	i := 1
	for ; i < len(s); i++ {
		switch s[i] {
		case '#':
			pc++
		case 'b':
			pc--
		default:
			return pc, s[i:], nil
		}
	}
	return pc, s[i:], nil
}

// PitchClass returns the note's position within the octave, 0 for C.
func (n Note) PitchClass() int {
	return ((int(n) % 12) + 12) % 12
}

// Octave returns the scientific pitch octave, so C4 is in octave 4.
func (n Note) Octave() int {
	return int(n)/12 - 1
}

// Name returns the sharp spelling of the note, e.g. "C#4".
func (n Note) Name() string {
	return sharpNames[n.PitchClass()] + strconv.Itoa(n.Octave())
}

func (n Note) String() string {
	return n.Name()
}

// Transpose shifts n by the given number of semitones.
func Transpose(n Note, semitones int) Note {
	return n + Note(semitones)
}
