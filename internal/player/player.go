// Package player plays sequences of note patterns and pauses over MIDI.
package player

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/pavelanni/eartrainer/internal/model"
)

// StartKind tells the observer what a part represents.
type StartKind int

const (
	// StartNone marks a part the observer does not track, such as a cadence.
	StartNone StartKind = iota
	// StartSegment marks the audio of a question segment.
	StartSegment
	// StartHighlight marks a feedback part; an empty Answer clears the highlight.
	StartHighlight
)

// StartTag is reported to the Observer right before its part starts.
type StartTag struct {
	Kind    StartKind
	Segment int
	Answer  model.Answer
}

// PartToPlay is either a pattern or, when Pattern is nil, a pause of Delay.
type PartToPlay struct {
	Pattern model.Pattern
	Delay   time.Duration
	Start   StartTag
}

// PatternPart builds a part that plays p.
func PatternPart(p model.Pattern, start StartTag) PartToPlay {
	return PartToPlay{Pattern: p, Start: start}
}

// DelayPart builds a silent part lasting d.
func DelayPart(d time.Duration) PartToPlay {
	return PartToPlay{Delay: d}
}

// Observer receives part start notifications.
type Observer interface {
	PartStarted(tag StartTag)
}

// Output is where the engine sends MIDI and how it lets time pass.
type Output interface {
	Send(msg midi.Message) error
	Wait(ctx context.Context, d time.Duration) error
}

const (
	// DefaultBPM is the tempo used when WithTempo is not given.
	DefaultBPM = 120.0
	// DefaultVelocity applies to events that carry no velocity of their own.
	DefaultVelocity = 100
)

// Engine plays parts one after another on an Output.
type Engine struct {
	out      Output
	bpm      float64
	channel  uint8
	velocity uint8
}

// Option configures an Engine.
type Option func(*Engine)

// WithTempo sets the tempo in quarter notes per minute.
func WithTempo(bpm float64) Option {
	return func(e *Engine) {
		if bpm > 0 {
			e.bpm = bpm
		}
	}
}

// WithChannel sets the 0-based MIDI channel.
func WithChannel(ch uint8) Option {
	return func(e *Engine) { e.channel = ch & 0x0F }
}

// WithVelocity sets the velocity used for events that carry none.
func WithVelocity(v uint8) Option {
	return func(e *Engine) {
		if v > 0 && v <= 127 {
			e.velocity = v
		}
	}
}

// New creates an Engine writing to out.
func New(out Output, opts ...Option) *Engine {
	e := &Engine{out: out, bpm: DefaultBPM, velocity: DefaultVelocity}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BPM returns the engine tempo.
func (e *Engine) BPM() float64 {
	return e.bpm
}

// BeatDuration converts a length in quarter notes to wall time.
func (e *Engine) BeatDuration(beats float64) time.Duration {
	return time.Duration(beats * float64(time.Minute) / e.bpm)
}

// PlayMultipleParts plays parts in order and returns when the last one ends.
// obs, when non-nil, is notified synchronously before each part starts.
func (e *Engine) PlayMultipleParts(ctx context.Context, parts []PartToPlay, obs Observer) error {
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if obs != nil {
			obs.PartStarted(part.Start)
		}
		if part.Pattern == nil {
			if err := e.out.Wait(ctx, part.Delay); err != nil {
				return err
			}
			continue
		}
		if err := e.playPattern(ctx, part.Pattern); err != nil {
			return fmt.Errorf("play part %d: %w", i, err)
		}
	}
	return nil
}

func (e *Engine) playPattern(ctx context.Context, p model.Pattern) error {
	for _, ev := range p {
		if err := e.playEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) playEvent(ctx context.Context, ev model.NoteEvent) error {
	velocity := ev.Velocity
	if velocity == 0 {
		velocity = e.velocity
	}
	for _, n := range ev.Notes {
		if n < 0 || n > 127 {
			return fmt.Errorf("note %d out of MIDI range", n)
		}
	}

	for _, n := range ev.Notes {
		if err := e.out.Send(midi.NoteOn(e.channel, uint8(n), velocity)); err != nil {
			return fmt.Errorf("note on: %w", err)
		}
	}
	waitErr := e.out.Wait(ctx, e.BeatDuration(ev.Beats))

	// Release the notes even when the wait was cancelled.
	for _, n := range ev.Notes {
		if err := e.out.Send(midi.NoteOff(e.channel, uint8(n))); err != nil && waitErr == nil {
			waitErr = fmt.Errorf("note off: %w", err)
		}
	}
	return waitErr
}
