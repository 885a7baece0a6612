package exercise

import (
	"fmt"

	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/music"
)

const IntervalID = "interval"

type intervalDef struct {
	name      model.Answer
	semitones int
}

var intervals = []intervalDef{
	{"Minor 2nd", 1},
	{"Major 2nd", 2},
	{"Minor 3rd", 3},
	{"Major 3rd", 4},
	{"Perfect 4th", 5},
	{"Aug 4th", 6},
	{"Perfect 5th", 7},
	{"Minor 6th", 8},
	{"Major 6th", 9},
	{"Minor 7th", 10},
	{"Major 7th", 11},
	{"Octave", 12},
}

func intervalNames() []model.Answer {
	out := make([]model.Answer, len(intervals))
	for i, iv := range intervals {
		out[i] = iv.name
	}
	return out
}

// Interval plays two notes one after the other and asks for the distance
// between them.
type Interval struct {
	settingsHolder
	opts  options
	notes *music.NotesRange
}

// NewInterval creates the exercise with all intervals included.
func NewInterval(opts ...Option) *Interval {
	all := intervalNames()
	descriptor := []model.SettingsControlDescriptor{
		{Key: settingIncludedAnswers, Label: "Included intervals", ControlType: model.ControlListSelect, Options: optionsOf(all)},
	}
	defaults := model.ExerciseSettings{
		settingIncludedAnswers: listOf(all),
	}
	notes, _ := music.ParseNotesRange("C3", "E5")
	return &Interval{
		settingsHolder: newSettingsHolder(descriptor, defaults),
		opts:           newOptions(opts),
		notes:          notes,
	}
}

func (e *Interval) ID() string      { return IntervalID }
func (e *Interval) Name() string    { return "Interval Recognition" }
func (e *Interval) Summary() string { return "Recognize the distance between two notes" }

func (e *Interval) UpdateSettings(settings model.ExerciseSettings) error {
	return e.update(settings)
}

func (e *Interval) AnswerList() model.AnswerList {
	return chunk(e.included(settingIncludedAnswers, intervalNames()), 4)
}

func (e *Interval) Question() (model.Question, error) {
	keep := e.included(settingIncludedAnswers, intervalNames())
	if len(keep) == 0 {
		return model.Question{}, fmt.Errorf("no intervals included")
	}
	name := keep[e.opts.rng.IntN(len(keep))]
	var semitones int
	for _, iv := range intervals {
		if iv.name == name {
			semitones = iv.semitones
		}
	}

	span := e.notes.Size() - semitones
	if span < 0 {
		return model.Question{}, fmt.Errorf("interval %s does not fit in %s", name, e.notes)
	}
	low := music.Transpose(e.notes.Lowest, e.opts.rng.IntN(span+1))
	high := music.Transpose(low, semitones)
	first, second := low, high
	if e.opts.rng.IntN(2) == 1 {
		first, second = high, low
	}

	return model.Question{
		Segments: []model.Segment{{
			RightAnswer: name,
			PartToPlay:  model.SteadyPattern([]music.Note{first}, []music.Note{second}),
		}},
	}, nil
}
