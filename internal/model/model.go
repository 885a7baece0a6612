package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/eartrainer/internal/music"
)

// Answer is a selectable answer label, e.g. "Do" or "Perfect 5th".
type Answer string

// AnswerList is the layout of selectable answers, one slice per row.
type AnswerList struct {
	Rows [][]Answer `json:"rows"`
}

// Flat returns all answers in row order.
func (l AnswerList) Flat() []Answer {
	var out []Answer
	for _, row := range l.Rows {
		out = append(out, row...)
	}
	return out
}

// Contains reports whether a is one of the list's answers.
func (l AnswerList) Contains(a Answer) bool {
	for _, row := range l.Rows {
		for _, x := range row {
			if x == a {
				return true
			}
		}
	}
	return false
}

// NoteEvent sounds Notes together for Beats quarter notes.
type NoteEvent struct {
	Notes    []music.Note `json:"notes"`
	Beats    float64      `json:"beats"`
	Velocity uint8        `json:"velocity,omitempty"`
}

// Pattern is a sequence of note events played back to back.
type Pattern []NoteEvent

// SteadyPattern turns each entry into a one-beat event. A single note
// becomes a one-note event and a chord keeps its notes together.
func SteadyPattern(chords ...[]music.Note) Pattern {
	p := make(Pattern, len(chords))
	for i, notes := range chords {
		p[i] = NoteEvent{Notes: notes, Beats: 1}
	}
	return p
}

// Segment is one answerable unit of a question.
type Segment struct {
	RightAnswer Answer  `json:"rightAnswer"`
	PartToPlay  Pattern `json:"partToPlay"`
}

// AfterCorrectAnswerPart is one step of the feedback played once a question
// is fully answered. AnswerToHighlight may be empty.
type AfterCorrectAnswerPart struct {
	PartToPlay        Pattern `json:"partToPlay"`
	AnswerToHighlight Answer  `json:"answerToHighlight,omitempty"`
}

// Question is an ordered list of segments with an optional cadence primer
// and optional feedback sequence.
type Question struct {
	Segments           []Segment                `json:"segments"`
	Cadence            Pattern                  `json:"cadence,omitempty"`
	AfterCorrectAnswer []AfterCorrectAnswerPart `json:"afterCorrectAnswer,omitempty"`
}

// CurrentAnswer tracks the attempts on one segment of the current question.
type CurrentAnswer struct {
	Answer   *Answer `json:"answer"`
	WasWrong bool    `json:"wasWrong"`
}

// GlobalExerciseSettings apply to every exercise.
type GlobalExerciseSettings struct {
	PlayCadence bool `json:"playCadence"`
}

// DefaultGlobalSettings are used until persisted settings are applied.
var DefaultGlobalSettings = GlobalExerciseSettings{PlayCadence: true}

// ExerciseSettingsData is the persisted settings bundle of one exercise.
type ExerciseSettingsData struct {
	GlobalSettings   GlobalExerciseSettings `json:"globalSettings"`
	ExerciseSettings ExerciseSettings       `json:"exerciseSettings"`
}

// ExerciseSettings maps a setting key to its value.
type ExerciseSettings map[string]SettingValue

// SettingKind tells which field of a SettingValue is meaningful.
type SettingKind string

const (
	SettingNumber SettingKind = "number"
	SettingString SettingKind = "string"
	SettingBool   SettingKind = "bool"
	SettingList   SettingKind = "list"
)

// SettingValue is a number, string, boolean or string list. It encodes to
// JSON as the bare value.
type SettingValue struct {
	Kind   SettingKind
	Number float64
	String string
	Bool   bool
	List   []string
}

func NumberValue(n float64) SettingValue { return SettingValue{Kind: SettingNumber, Number: n} }
func StringValue(s string) SettingValue  { return SettingValue{Kind: SettingString, String: s} }
func BoolValue(b bool) SettingValue      { return SettingValue{Kind: SettingBool, Bool: b} }
func ListValue(items ...string) SettingValue {
	if len(items) == 0 {
		items = nil
	}
	return SettingValue{Kind: SettingList, List: items}
}

func (v SettingValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case SettingNumber:
		return json.Marshal(v.Number)
	case SettingString:
		return json.Marshal(v.String)
	case SettingBool:
		return json.Marshal(v.Bool)
	case SettingList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case "":
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown setting kind %q", v.Kind)
	}
}

// UnmarshalJSON decodes a bare value. A JSON null leaves v unset, which
// exercises treat as a request for the default.
func (v *SettingValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty setting value")
	}
	if bytes.Equal(data, []byte("null")) {
		*v = SettingValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("setting list: %w", err)
		}
		*v = ListValue(items...)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("setting value %s: %w", data, err)
		}
		*v = NumberValue(n)
	}
	return nil
}

// ControlType is the kind of input a settings control renders as.
type ControlType string

const (
	ControlSelect     ControlType = "select"
	ControlSlider     ControlType = "slider"
	ControlCheckbox   ControlType = "checkbox"
	ControlListSelect ControlType = "list-select"
)

// ControlOption is one choice of a select or list-select control.
type ControlOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SettingsControlDescriptor describes one configurable exercise setting.
type SettingsControlDescriptor struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	ControlType ControlType     `json:"controlType"`
	Options     []ControlOption `json:"options,omitempty"`
	Min         float64         `json:"min,omitempty"`
	Max         float64         `json:"max,omitempty"`
	Step        float64         `json:"step,omitempty"`
}

// ExerciseInfo is a catalog entry.
type ExerciseInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Summary      string `json:"summary"`
	Configurable bool   `json:"configurable"`
}

// SessionResult is the record kept of a finished practice session.
type SessionResult struct {
	ID                  int64     `json:"id"`
	ExerciseID          string    `json:"exercise_id"`
	TotalQuestions      int       `json:"total_questions"`
	TotalCorrectAnswers int       `json:"total_correct_answers"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

// Accuracy returns the share of questions answered without a wrong guess.
func (r SessionResult) Accuracy() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.TotalCorrectAnswers) / float64(r.TotalQuestions)
}

// TrainerConfig holds runtime parameters set via CLI flags.
type TrainerConfig struct {
	BPM      float64 // playback tempo in quarter notes per minute
	Channel  uint8   // MIDI channel, 0-based
	Velocity uint8   // default note velocity
	MIDIOut  string  // output port name; empty disables real-time output
	Record   string  // SMF path to record playback to; empty disables recording
	Lang     string
}
