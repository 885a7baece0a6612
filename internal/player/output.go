package player

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"
)

// PortOutput sends messages to a MIDI output port in real time.
type PortOutput struct {
	port drivers.Out
	send func(msg midi.Message) error
}

// OpenPort connects to the first output port whose name contains name.
// A MIDI driver must be registered by the caller, e.g. by importing rtmididrv.
func OpenPort(name string) (*PortOutput, error) {
	port, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("find MIDI out port %q: %w", name, err)
	}
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open MIDI out port %q: %w", name, err)
	}
	slog.Info("opened MIDI output", "port", port.String())
	return &PortOutput{port: port, send: send}, nil
}

func (p *PortOutput) Send(msg midi.Message) error {
	return p.send(msg)
}

func (p *PortOutput) Wait(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (p *PortOutput) Close() error {
	return p.port.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RecordedEvent is a message captured by a Recorder at a point in time.
type RecordedEvent struct {
	At      time.Duration
	Message midi.Message
}

// Recorder captures the message stream on a virtual clock: Wait advances
// time without sleeping. With Realtime set it also sleeps, so it can sit
// behind a live port through Tee.
type Recorder struct {
	Realtime bool

	mu     sync.Mutex
	now    time.Duration
	events []RecordedEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(msg midi.Message) error {
	cp := make(midi.Message, len(msg))
	copy(cp, msg)
	r.mu.Lock()
	r.events = append(r.events, RecordedEvent{At: r.now, Message: cp})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Wait(ctx context.Context, d time.Duration) error {
	if r.Realtime {
		if err := sleep(ctx, d); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.now += d
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Elapsed returns the virtual time consumed so far.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

const ticksPerQuarter = 480

// WriteSMF writes the captured stream as a single-track Standard MIDI File.
func (r *Recorder) WriteSMF(w io.Writer, bpm float64) error {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTempo(bpm))

	var lastTick uint32
	for _, ev := range r.Events() {
		tick := uint32(math.Round(ev.At.Minutes() * bpm * ticksPerQuarter))
		track.Add(tick-lastTick, ev.Message)
		lastTick = tick
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write MIDI: %w", err)
	}
	return nil
}

// WriteSMFFile writes the captured stream to path.
func (r *Recorder) WriteSMFFile(path string, bpm float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.WriteSMF(f, bpm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Tee sends every message to all outputs. Wait blocks on the primary and
// then advances the others, so they should be virtual-clock outputs such as
// Recorder.
func Tee(primary Output, others ...Output) Output {
	return tee{primary: primary, others: others}
}

type tee struct {
	primary Output
	others  []Output
}

func (t tee) Send(msg midi.Message) error {
	if err := t.primary.Send(msg); err != nil {
		return err
	}
	for _, o := range t.others {
		if err := o.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Wait(ctx context.Context, d time.Duration) error {
	if err := t.primary.Wait(ctx, d); err != nil {
		return err
	}
	for _, o := range t.others {
		if err := o.Wait(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
