package music

import (
	"strings"
	"testing"
)

func TestParseNote(t *testing.T) {
	tests := []struct {
		name    string
		want    Note
		wantErr bool
	}{
		{"C4", 60, false},
		{"A4", 69, false},
		{"C#4", 61, false},
		{"Db4", 61, false},
		{"B3", 59, false},
		{"Cb4", 59, false},
		{"C-1", 0, false},
		{"G9", 127, false},
		{"G#9", 0, true},
		{"H4", 0, true},
		{"C", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNote(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseNote(%q) expected error, got %d", tt.name, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNote(%q): %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseNote(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestNoteName(t *testing.T) {
	tests := []struct {
		note Note
		want string
	}{
		{60, "C4"},
		{61, "C#4"},
		{0, "C-1"},
		{71, "B4"},
		{127, "G9"},
	}
	for _, tt := range tests {
		if got := tt.note.Name(); got != tt.want {
			t.Errorf("Note(%d).Name() = %q, want %q", tt.note, got, tt.want)
		}
	}

	// Names round-trip through ParseNote.
	for n := MinNote; n <= MaxNote; n++ {
		back, err := ParseNote(n.Name())
		if err != nil {
			t.Fatalf("ParseNote(%q): %v", n.Name(), err)
		}
		if back != n {
			t.Fatalf("round trip of %d gave %d", n, back)
		}
	}
}

func TestIsInKey(t *testing.T) {
	tests := []struct {
		note string
		key  Key
		want bool
	}{
		{"C4", "C", true},
		{"F#4", "C", false},
		{"F#4", "G", true},
		{"F4", "G", false},
		{"Bb3", "F", true},
		{"B3", "F", false},
		{"C4", "Xb", false},
	}
	for _, tt := range tests {
		if got := IsInKey(MustParseNote(tt.note), tt.key); got != tt.want {
			t.Errorf("IsInKey(%s, %s) = %v, want %v", tt.note, tt.key, got, tt.want)
		}
	}
}

func TestScaleDegree(t *testing.T) {
	degree, ok := ScaleDegree(MustParseNote("D5"), "G")
	if !ok || degree != 5 {
		t.Errorf("ScaleDegree(D5, G) = %d, %v; want 5, true", degree, ok)
	}
	if _, ok := ScaleDegree(MustParseNote("C#4"), "C"); ok {
		t.Error("C#4 should not be diatonic to C")
	}

	offsets := []int{0, 2, 4, 5, 7, 9, 11, 12, 14}
	for i, want := range offsets {
		if got := DegreeOffset(i + 1); got != want {
			t.Errorf("DegreeOffset(%d) = %d, want %d", i+1, got, want)
		}
	}
}

func TestNotesRange(t *testing.T) {
	if _, err := ParseNotesRange("C4", "B3"); err == nil || !strings.Contains(err.Error(), "invalid note range") {
		t.Fatalf("expected invalid note range error, got %v", err)
	}

	r, err := ParseNotesRange("C4", "C5")
	if err != nil {
		t.Fatalf("ParseNotesRange: %v", err)
	}
	if r.Size() != 12 {
		t.Errorf("Size() = %d, want 12", r.Size())
	}
	if !r.Contains(MustParseNotes("C4", "G4", "C5")...) {
		t.Error("expected range to contain its ends and middle")
	}
	if r.Contains(MustParseNotes("C4", "D5")...) {
		t.Error("one note outside should fail Contains")
	}

	if got := len(r.AllNotes("")); got != 13 {
		t.Errorf("chromatic AllNotes = %d notes, want 13", got)
	}
	inC := r.AllNotes("C")
	if len(inC) != 8 {
		t.Fatalf("AllNotes(C) = %v, want 8 notes", inC)
	}
	if inC[0] != MustParseNote("C4") || inC[7] != MustParseNote("C5") {
		t.Errorf("AllNotes(C) ends = %s..%s", inC[0], inC[7])
	}

	// Memoized: same backing array on the second call.
	again := r.AllNotes("C")
	if &again[0] != &inC[0] {
		t.Error("expected AllNotes to return the cached slice")
	}
}
