// Package exercise provides the ear-training exercises a session can run.
package exercise

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/pavelanni/eartrainer/internal/model"
)

// ErrNotFound is returned for an unknown exercise ID.
var ErrNotFound = errors.New("exercise not found")

// Exercise produces questions and the answers they are scored against.
type Exercise interface {
	ID() string
	Name() string
	Summary() string
	Question() (model.Question, error)
	AnswerList() model.AnswerList
}

// Configurable is implemented by exercises that expose settings.
type Configurable interface {
	Exercise
	SettingsDescriptor() []model.SettingsControlDescriptor
	CurrentSettings() model.ExerciseSettings
	UpdateSettings(settings model.ExerciseSettings) error
}

// Factory creates a fresh exercise instance.
type Factory func() Exercise

// Registry maps exercise IDs to factories.
type Registry struct {
	order     []string
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry with the built-in exercises.
func Default(opts ...Option) *Registry {
	r := NewRegistry()
	r.Register(NotesInKeyID, func() Exercise { return NewNotesInKey(opts...) })
	r.Register(IntervalID, func() Exercise { return NewInterval(opts...) })
	r.Register(TriadQualityID, func() Exercise { return NewTriadQuality(opts...) })
	return r
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id string, f Factory) {
	if _, ok := r.factories[id]; !ok {
		r.order = append(r.order, id)
	}
	r.factories[id] = f
}

// GetExercise returns a new instance of the exercise with the given ID.
func (r *Registry) GetExercise(id string) (Exercise, error) {
	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return f(), nil
}

// List describes the registered exercises in registration order.
func (r *Registry) List() []model.ExerciseInfo {
	infos := make([]model.ExerciseInfo, 0, len(r.order))
	for _, id := range r.order {
		ex := r.factories[id]()
		_, configurable := ex.(Configurable)
		infos = append(infos, model.ExerciseInfo{
			ID:           ex.ID(),
			Name:         ex.Name(),
			Summary:      ex.Summary(),
			Configurable: configurable,
		})
	}
	return infos
}

type options struct {
	rng *lockedRand
}

// lockedRand lets exercise instances created from the same options share
// one generator.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Option configures a built-in exercise.
type Option func(*options)

// WithRand makes question generation use rng, e.g. for reproducible tests.
// Exercises created with the same option share rng safely.
func WithRand(rng *rand.Rand) Option {
	shared := &lockedRand{r: rng}
	return func(o *options) { o.rng = shared }
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return o
}

func answers(names ...string) []model.Answer {
	out := make([]model.Answer, len(names))
	for i, n := range names {
		out[i] = model.Answer(n)
	}
	return out
}

// chunk lays out answers in rows of at most size.
func chunk(items []model.Answer, size int) model.AnswerList {
	var list model.AnswerList
	for len(items) > 0 {
		n := min(size, len(items))
		list.Rows = append(list.Rows, items[:n:n])
		items = items[n:]
	}
	return list
}
