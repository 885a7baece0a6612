// Package session runs one ear-training exercise: it scores answers, drives
// playback of the current question and applies settings changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/eartrainer/internal/exercise"
	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/player"
)

var (
	// ErrQuestionComplete is returned by Answer once every segment of the
	// current question has been answered. The session is left unchanged.
	ErrQuestionComplete = errors.New("question already answered")
	// ErrPlaybackInProgress is returned by the play methods while an earlier
	// playback has not finished.
	ErrPlaybackInProgress = errors.New("playback already in progress")
)

// cadencePause separates the cadence from the question audio.
const cadencePause = 100 * time.Millisecond

const noSegment = -1

// Provider resolves exercises by ID.
type Provider interface {
	GetExercise(id string) (exercise.Exercise, error)
}

// Player plays parts in sequence, notifying obs before each one.
type Player interface {
	PlayMultipleParts(ctx context.Context, parts []player.PartToPlay, obs player.Observer) error
}

// SettingsStore persists settings per exercise ID. A nil result from
// GetExerciseSettings means nothing was saved.
type SettingsStore interface {
	GetExerciseSettings(ctx context.Context, exerciseID string) (*model.ExerciseSettingsData, error)
	SaveExerciseSettings(ctx context.Context, exerciseID string, data model.ExerciseSettingsData) error
}

// Session is the state of one practice run of an exercise. It is safe for
// use from multiple goroutines.
type Session struct {
	exercise     exercise.Exercise
	configurable exercise.Configurable // nil when the exercise has no settings
	player       Player
	store        SettingsStore
	startedAt    time.Time
	hasCadence   bool
	log          *slog.Logger

	// playing holds a token while a playback is outstanding.
	playing chan struct{}

	mu                  sync.Mutex
	question            model.Question
	answerList          model.AnswerList
	globalSettings      model.GlobalExerciseSettings
	totalCorrectAnswers int
	totalQuestions      int
	currentAnswers      []model.CurrentAnswer
	currentSegment      int
	playingSegment      int
	highlightedAnswer   model.Answer
}

// New resolves the exercise and prepares its first question with default
// settings. Persisted settings are applied separately with
// ApplyPersistedSettings or LoadSettingsAsync.
func New(provider Provider, exerciseID string, p Player, store SettingsStore) (*Session, error) {
	ex, err := provider.GetExercise(exerciseID)
	if err != nil {
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	q, err := ex.Question()
	if err != nil {
		return nil, fmt.Errorf("first question: %w", err)
	}

	s := &Session{
		exercise:       ex,
		player:         p,
		store:          store,
		startedAt:      time.Now(),
		hasCadence:     q.Cadence != nil,
		log:            slog.With("exercise", ex.ID()),
		playing:        make(chan struct{}, 1),
		question:       q,
		answerList:     ex.AnswerList(),
		globalSettings: model.DefaultGlobalSettings,
		currentAnswers: freshAnswers(q),
		playingSegment: noSegment,
	}
	if c, ok := ex.(exercise.Configurable); ok {
		s.configurable = c
	}
	return s, nil
}

func freshAnswers(q model.Question) []model.CurrentAnswer {
	return make([]model.CurrentAnswer, len(q.Segments))
}

// ExerciseID returns the ID of the running exercise.
func (s *Session) ExerciseID() string {
	return s.exercise.ID()
}

// ApplyPersistedSettings loads saved settings for the exercise and applies
// them. Nothing changes when no settings were saved.
func (s *Session) ApplyPersistedSettings(ctx context.Context) error {
	data, err := s.store.GetExerciseSettings(ctx, s.exercise.ID())
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalSettings = data.GlobalSettings
	if err := s.applyExerciseSettingsLocked(data.ExerciseSettings); err != nil {
		return err
	}
	s.log.Debug("applied persisted settings", "play_cadence", data.GlobalSettings.PlayCadence)
	return nil
}

// LoadSettingsAsync runs ApplyPersistedSettings in the background. The
// session stays usable meanwhile; the returned channel yields the result
// once and is then closed.
func (s *Session) LoadSettingsAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := s.ApplyPersistedSettings(ctx)
		if err != nil {
			s.log.Warn("failed to apply persisted settings", "error", err)
		}
		done <- err
	}()
	return done
}

// AnswerResult reports the outcome of one Answer call.
type AnswerResult struct {
	Correct bool
	// Completed is set when this answer finished the question.
	Completed bool
	// Feedback tracks the after-correct-answer playback of a completed
	// question. It is nil otherwise.
	Feedback *Feedback
}

// Feedback is a handle on the playback started when a question completes.
type Feedback struct {
	done chan struct{}
	err  error
}

// Wait blocks until the feedback playback ends and returns its error.
// Wait on a nil Feedback returns nil at once.
func (f *Feedback) Wait() error {
	if f == nil {
		return nil
	}
	<-f.done
	return f.err
}

// Done is closed when the feedback playback ends.
func (f *Feedback) Done() <-chan struct{} {
	if f == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return f.done
}

// Answer scores value against the current segment. A wrong answer marks the
// segment as missed and leaves progress where it is. A correct answer moves
// to the next segment. Answering the last segment completes the question: it
// is counted, and credited as correct only if no segment was ever missed,
// and its feedback sequence starts.
func (s *Session) Answer(ctx context.Context, value model.Answer) (AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentSegment >= len(s.question.Segments) {
		return AnswerResult{}, ErrQuestionComplete
	}

	current := &s.currentAnswers[s.currentSegment]
	if s.question.Segments[s.currentSegment].RightAnswer != value {
		current.WasWrong = true
		return AnswerResult{}, nil
	}

	accepted := value
	current.Answer = &accepted
	s.currentSegment++

	res := AnswerResult{Correct: true}
	if s.currentSegment == len(s.question.Segments) {
		s.totalQuestions++
		if !s.anyWrongLocked() {
			s.totalCorrectAnswers++
		}
		res.Completed = true
		res.Feedback = s.afterCorrectAnswerLocked(ctx)
	}
	return res, nil
}

func (s *Session) anyWrongLocked() bool {
	for _, a := range s.currentAnswers {
		if a.WasWrong {
			return true
		}
	}
	return false
}

// afterCorrectAnswerLocked starts the feedback sequence of the current
// question in the background. It waits its turn behind any playback that is
// already running.
func (s *Session) afterCorrectAnswerLocked(ctx context.Context) *Feedback {
	f := &Feedback{done: make(chan struct{})}
	feedback := s.question.AfterCorrectAnswer
	if len(feedback) == 0 {
		close(f.done)
		return f
	}

	parts := make([]player.PartToPlay, len(feedback))
	for i, fp := range feedback {
		parts[i] = player.PatternPart(fp.PartToPlay, player.StartTag{
			Kind:   player.StartHighlight,
			Answer: fp.AnswerToHighlight,
		})
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		s.playing <- struct{}{}
		defer func() { <-s.playing }()

		f.err = s.player.PlayMultipleParts(ctx, parts, s)
		s.mu.Lock()
		s.highlightedAnswer = ""
		s.mu.Unlock()
		if f.err != nil {
			s.log.Error("feedback playback failed", "error", f.err)
		}
	}()
	return f
}

// PlayCurrentCadenceAndQuestion plays the cadence, a short pause and then
// the question. The cadence is skipped when the question has none or the
// playCadence setting is off.
func (s *Session) PlayCurrentCadenceAndQuestion(ctx context.Context) error {
	s.mu.Lock()
	parts := s.questionPartsLocked()
	if s.question.Cadence != nil && s.globalSettings.PlayCadence {
		parts = append([]player.PartToPlay{
			player.PatternPart(s.question.Cadence, player.StartTag{}),
			player.DelayPart(cadencePause),
		}, parts...)
	}
	s.mu.Unlock()

	return s.play(ctx, parts)
}

// PlayCurrentQuestion plays the segments of the current question.
func (s *Session) PlayCurrentQuestion(ctx context.Context) error {
	s.mu.Lock()
	parts := s.questionPartsLocked()
	s.mu.Unlock()

	return s.play(ctx, parts)
}

func (s *Session) questionPartsLocked() []player.PartToPlay {
	parts := make([]player.PartToPlay, len(s.question.Segments))
	for i, seg := range s.question.Segments {
		parts[i] = player.PatternPart(seg.PartToPlay, player.StartTag{
			Kind:    player.StartSegment,
			Segment: i,
		})
	}
	return parts
}

func (s *Session) play(ctx context.Context, parts []player.PartToPlay) error {
	select {
	case s.playing <- struct{}{}:
	default:
		return ErrPlaybackInProgress
	}
	defer func() { <-s.playing }()

	err := s.player.PlayMultipleParts(ctx, parts, s)

	s.mu.Lock()
	s.playingSegment = noSegment
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("play question: %w", err)
	}
	return nil
}

// PartStarted records which segment is sounding or which answer to
// highlight. It is called by the player.
func (s *Session) PartStarted(tag player.StartTag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch tag.Kind {
	case player.StartSegment:
		s.playingSegment = tag.Segment
	case player.StartHighlight:
		s.highlightedAnswer = tag.Answer
	}
}

// NextQuestion replaces the current question and resets answer progress.
// Counters and settings are kept.
func (s *Session) NextQuestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextQuestionLocked()
}

func (s *Session) nextQuestionLocked() error {
	q, err := s.exercise.Question()
	if err != nil {
		return fmt.Errorf("next question: %w", err)
	}
	s.question = q
	s.currentAnswers = freshAnswers(q)
	s.currentSegment = 0
	return nil
}

// UpdateSettings saves data, then applies it. For a configurable exercise
// this refreshes the answer list and abandons the current question. If
// saving fails nothing is applied.
func (s *Session) UpdateSettings(ctx context.Context, data model.ExerciseSettingsData) error {
	if err := s.store.SaveExerciseSettings(ctx, s.exercise.ID(), data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalSettings = data.GlobalSettings
	return s.applyExerciseSettingsLocked(data.ExerciseSettings)
}

func (s *Session) applyExerciseSettingsLocked(settings model.ExerciseSettings) error {
	if s.configurable == nil {
		return nil
	}
	if err := s.configurable.UpdateSettings(settings); err != nil {
		return fmt.Errorf("update exercise settings: %w", err)
	}
	s.answerList = s.exercise.AnswerList()
	return s.nextQuestionLocked()
}

// Result summarises the session so far.
func (s *Session) Result() model.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionResult{
		ExerciseID:          s.exercise.ID(),
		TotalQuestions:      s.totalQuestions,
		TotalCorrectAnswers: s.totalCorrectAnswers,
		StartedAt:           s.startedAt,
		FinishedAt:          time.Now(),
	}
}
