package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/player"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gitlab.com/gomidi/midi/v2"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func addPlaybackFlags(f *pflag.FlagSet) {
	f.String("midi-out", "", "MIDI output port name (substring match); empty plays silently")
	f.String("record", "", "Write everything played to this Standard MIDI File")
	f.Float64("bpm", player.DefaultBPM, "Playback tempo in beats per minute")
	f.Int("channel", 1, "MIDI channel (1-16)")
	f.Int("velocity", player.DefaultVelocity, "Default note velocity (1-127)")
}

func trainerConfig(v *viper.Viper) model.TrainerConfig {
	channel := v.GetInt("channel")
	if channel < 1 || channel > 16 {
		slog.Warn("invalid MIDI channel, using 1", "channel", channel)
		channel = 1
	}
	velocity := v.GetInt("velocity")
	if velocity < 1 || velocity > 127 {
		slog.Warn("invalid velocity, using default", "velocity", velocity)
		velocity = player.DefaultVelocity
	}
	return model.TrainerConfig{
		BPM:      v.GetFloat64("bpm"),
		Channel:  uint8(channel - 1),
		Velocity: uint8(velocity),
		MIDIOut:  v.GetString("midi-out"),
		Record:   v.GetString("record"),
		Lang:     v.GetString("lang"),
	}
}

// playback owns the engine and the outputs behind it.
type playback struct {
	engine   *player.Engine
	port     *player.PortOutput
	recorder *player.Recorder
	cfg      model.TrainerConfig
}

// openPlayback wires the engine to the configured port and recorder. Without
// a port the recorder runs in real time to keep playback paced.
func openPlayback(cfg model.TrainerConfig) (*playback, error) {
	p := &playback{cfg: cfg, recorder: player.NewRecorder()}

	var out player.Output = p.recorder
	if cfg.MIDIOut != "" {
		port, err := player.OpenPort(cfg.MIDIOut)
		if err != nil {
			midi.CloseDriver()
			return nil, fmt.Errorf("open MIDI output: %w", err)
		}
		p.port = port
		out = player.Tee(port, p.recorder)
	} else {
		p.recorder.Realtime = true
		slog.Warn("no MIDI output configured, playback is silent")
	}

	p.engine = player.New(out,
		player.WithTempo(cfg.BPM),
		player.WithChannel(cfg.Channel),
		player.WithVelocity(cfg.Velocity),
	)
	return p, nil
}

// Close releases the port and writes the recording, if one was requested.
func (p *playback) Close() error {
	var errs []error
	if p.port != nil {
		errs = append(errs, p.port.Close())
	}
	midi.CloseDriver()
	if p.cfg.Record != "" {
		if err := p.recorder.WriteSMFFile(p.cfg.Record, p.engine.BPM()); err != nil {
			errs = append(errs, fmt.Errorf("write recording: %w", err))
		} else {
			slog.Info("wrote recording", "path", p.cfg.Record, "events", len(p.recorder.Events()))
		}
	}
	return errors.Join(errs...)
}
