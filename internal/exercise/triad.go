package exercise

import (
	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/music"
)

const TriadQualityID = "triad-quality"

var triadQualities = []struct {
	name      model.Answer
	semitones [3]int
}{
	{"Major", [3]int{0, 4, 7}},
	{"Minor", [3]int{0, 3, 7}},
	{"Diminished", [3]int{0, 3, 6}},
	{"Augmented", [3]int{0, 4, 8}},
}

// TriadQuality plays a block triad and asks for its quality. It has no
// settings.
type TriadQuality struct {
	opts  options
	roots *music.NotesRange
}

// NewTriadQuality creates the exercise.
func NewTriadQuality(opts ...Option) *TriadQuality {
	roots, _ := music.ParseNotesRange("C3", "C4")
	return &TriadQuality{opts: newOptions(opts), roots: roots}
}

func (e *TriadQuality) ID() string      { return TriadQualityID }
func (e *TriadQuality) Name() string    { return "Triad Quality" }
func (e *TriadQuality) Summary() string { return "Tell major, minor, diminished and augmented triads apart" }

func (e *TriadQuality) AnswerList() model.AnswerList {
	all := make([]model.Answer, len(triadQualities))
	for i, q := range triadQualities {
		all[i] = q.name
	}
	return chunk(all, 2)
}

func (e *TriadQuality) Question() (model.Question, error) {
	quality := triadQualities[e.opts.rng.IntN(len(triadQualities))]
	root := music.Transpose(e.roots.Lowest, e.opts.rng.IntN(e.roots.Size()+1))
	chord := make([]music.Note, len(quality.semitones))
	for i, s := range quality.semitones {
		chord[i] = music.Transpose(root, s)
	}
	return model.Question{
		Segments: []model.Segment{{
			RightAnswer: quality.name,
			PartToPlay:  model.Pattern{{Notes: chord, Beats: 2}},
		}},
	}, nil
}
