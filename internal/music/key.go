package music

import "fmt"

// Key is the tonic of a major key, e.g. "C", "Bb" or "F#".
type Key string

var majorScale = [7]int{0, 2, 4, 5, 7, 9, 11}

// Root returns the pitch class of the key's tonic.
func (k Key) Root() (int, error) {
	pc, rest, err := parsePitchClass(string(k))
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("invalid key %q", string(k))
	}
	return ((pc % 12) + 12) % 12, nil
}

// ScaleDegree returns the 1-based major-scale degree of n in k.
// ok is false when n is not diatonic to k or k is invalid.
func ScaleDegree(n Note, k Key) (degree int, ok bool) {
	root, err := k.Root()
	if err != nil {
		return 0, false
	}
	interval := ((n.PitchClass() - root) + 12) % 12
	for i, step := range majorScale {
		if step == interval {
			return i + 1, true
		}
	}
	return 0, false
}

// IsInKey reports whether n belongs to the major scale of k.
func IsInKey(n Note, k Key) bool {
	_, ok := ScaleDegree(n, k)
	return ok
}

// DegreeOffset returns the semitone distance from the tonic to a 1-based
// major-scale degree. Degrees above 7 continue into the next octave.
func DegreeOffset(degree int) int {
	if degree < 1 {
		return 0
	}
	d := degree - 1
	return (d/7)*12 + majorScale[d%7]
}
