package exercise

import (
	"fmt"

	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/music"
)

const NotesInKeyID = "notes-in-key"

const (
	settingKey             = "key"
	settingSegments        = "numberOfSegments"
	settingIncludedAnswers = "includedAnswers"
)

var (
	solfege     = answers("Do", "Re", "Mi", "Fa", "Sol", "La", "Ti")
	keyChoices  = []music.Key{"C", "G", "D", "A", "F", "Bb", "Eb"}
	tonicOctave = music.MustParseNote("C4")
)

// NotesInKey plays a cadence to establish a key and asks for the scale
// degree of one or more following notes.
type NotesInKey struct {
	settingsHolder
	opts  options
	notes *music.NotesRange
}

// NewNotesInKey creates the exercise with default settings.
func NewNotesInKey(opts ...Option) *NotesInKey {
	keyOpts := make([]model.ControlOption, len(keyChoices))
	for i, k := range keyChoices {
		keyOpts[i] = model.ControlOption{Label: string(k), Value: string(k)}
	}
	descriptor := []model.SettingsControlDescriptor{
		{Key: settingKey, Label: "Key", ControlType: model.ControlSelect, Options: keyOpts},
		{Key: settingSegments, Label: "Number of notes", ControlType: model.ControlSlider, Min: 1, Max: 8, Step: 1},
		{Key: settingIncludedAnswers, Label: "Included notes", ControlType: model.ControlListSelect, Options: optionsOf(solfege)},
	}
	defaults := model.ExerciseSettings{
		settingKey:             model.StringValue("C"),
		settingSegments:        model.NumberValue(1),
		settingIncludedAnswers: listOf(solfege),
	}
	notes, _ := music.ParseNotesRange("G3", "E5")
	return &NotesInKey{
		settingsHolder: newSettingsHolder(descriptor, defaults),
		opts:           newOptions(opts),
		notes:          notes,
	}
}

func (e *NotesInKey) ID() string      { return NotesInKeyID }
func (e *NotesInKey) Name() string    { return "Scale Degrees" }
func (e *NotesInKey) Summary() string { return "Identify notes by their function in the key" }

func (e *NotesInKey) UpdateSettings(settings model.ExerciseSettings) error {
	return e.update(settings)
}

func (e *NotesInKey) AnswerList() model.AnswerList {
	return chunk(e.included(settingIncludedAnswers, solfege), len(solfege))
}

func (e *NotesInKey) Question() (model.Question, error) {
	key := music.Key(e.text(settingKey))
	keep := e.included(settingIncludedAnswers, solfege)

	var candidates []music.Note
	for _, n := range e.notes.AllNotes(key) {
		degree, _ := music.ScaleDegree(n, key)
		for _, a := range keep {
			if a == solfege[degree-1] {
				candidates = append(candidates, n)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return model.Question{}, fmt.Errorf("no notes in %s match the included answers", e.notes)
	}

	count := int(e.number(settingSegments))
	q := model.Question{
		Segments: make([]model.Segment, count),
		Cadence:  e.cadence(key),
	}
	for i := range q.Segments {
		n := candidates[e.opts.rng.IntN(len(candidates))]
		degree, _ := music.ScaleDegree(n, key)
		q.Segments[i] = model.Segment{
			RightAnswer: solfege[degree-1],
			PartToPlay:  model.SteadyPattern([]music.Note{n}),
		}
		q.AfterCorrectAnswer = append(q.AfterCorrectAnswer, model.AfterCorrectAnswerPart{
			PartToPlay:        q.Segments[i].PartToPlay,
			AnswerToHighlight: q.Segments[i].RightAnswer,
		})
	}
	return q, nil
}

// cadence returns I-IV-V-I voiced above the tonic of key in octave 4.
func (e *NotesInKey) cadence(key music.Key) model.Pattern {
	root, err := key.Root()
	if err != nil {
		return nil
	}
	tonic := music.Transpose(tonicOctave, root)
	chord := func(degrees ...int) []music.Note {
		notes := make([]music.Note, len(degrees))
		for i, d := range degrees {
			notes[i] = music.Transpose(tonic, music.DegreeOffset(d))
		}
		return notes
	}
	p := model.SteadyPattern(
		chord(1, 3, 5),
		chord(1, 4, 6),
		chord(2, 5, 7),
		chord(1, 3, 5, 8),
	)
	p[len(p)-1].Beats = 2
	return p
}
