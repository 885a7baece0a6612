package session

import (
	"slices"

	"github.com/pavelanni/eartrainer/internal/model"
)

// State is a read-only copy of the session for presentation layers.
type State struct {
	Name                       string                            `json:"name"`
	HasCadence                 bool                              `json:"hasCadence"`
	TotalCorrectAnswers        int                               `json:"totalCorrectAnswers"`
	TotalQuestions             int                               `json:"totalQuestions"`
	CurrentAnswers             []model.CurrentAnswer             `json:"currentAnswers"`
	CurrentSegmentToAnswer     int                               `json:"currentSegmentToAnswer"`
	CurrentlyPlayingSegment    *int                              `json:"currentlyPlayingSegment"`
	HighlightedAnswer          *model.Answer                     `json:"highlightedAnswer"`
	GlobalSettings             model.GlobalExerciseSettings      `json:"globalSettings"`
	ExerciseSettings           model.ExerciseSettings            `json:"exerciseSettings"`
	ExerciseSettingsDescriptor []model.SettingsControlDescriptor `json:"exerciseSettingsDescriptor"`
	AnswerList                 model.AnswerList                  `json:"answerList"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Name:                   s.exercise.Name(),
		HasCadence:             s.hasCadence,
		TotalCorrectAnswers:    s.totalCorrectAnswers,
		TotalQuestions:         s.totalQuestions,
		CurrentAnswers:         slices.Clone(s.currentAnswers),
		CurrentSegmentToAnswer: s.currentSegment,
		GlobalSettings:         s.globalSettings,
		ExerciseSettings:       model.ExerciseSettings{},
		AnswerList:             s.answerList,
	}
	if s.playingSegment != noSegment {
		seg := s.playingSegment
		st.CurrentlyPlayingSegment = &seg
	}
	if s.highlightedAnswer != "" {
		a := s.highlightedAnswer
		st.HighlightedAnswer = &a
	}
	if s.configurable != nil {
		st.ExerciseSettings = s.configurable.CurrentSettings()
		st.ExerciseSettingsDescriptor = s.configurable.SettingsDescriptor()
	}
	if st.ExerciseSettingsDescriptor == nil {
		st.ExerciseSettingsDescriptor = []model.SettingsControlDescriptor{}
	}
	return st
}

// SettingsData returns the settings currently in effect, in the form
// UpdateSettings accepts.
func (s *Session) SettingsData() model.ExerciseSettingsData {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := model.ExerciseSettingsData{GlobalSettings: s.globalSettings}
	if s.configurable != nil {
		data.ExerciseSettings = s.configurable.CurrentSettings()
	}
	return data
}
