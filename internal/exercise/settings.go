package exercise

import (
	"fmt"
	"maps"
	"slices"

	"dario.cat/mergo"

	"github.com/pavelanni/eartrainer/internal/model"
)

// settingsHolder keeps the settings of a configurable exercise. Updates are
// merged over the defaults and then validated against the descriptor.
type settingsHolder struct {
	descriptor []model.SettingsControlDescriptor
	defaults   model.ExerciseSettings
	current    model.ExerciseSettings
}

func newSettingsHolder(descriptor []model.SettingsControlDescriptor, defaults model.ExerciseSettings) settingsHolder {
	return settingsHolder{
		descriptor: descriptor,
		defaults:   defaults,
		current:    maps.Clone(defaults),
	}
}

func (h *settingsHolder) SettingsDescriptor() []model.SettingsControlDescriptor {
	return slices.Clone(h.descriptor)
}

func (h *settingsHolder) CurrentSettings() model.ExerciseSettings {
	return maps.Clone(h.current)
}

func (h *settingsHolder) update(incoming model.ExerciseSettings) error {
	merged := maps.Clone(h.defaults)
	if err := mergo.Merge(&merged, incoming, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	for key, value := range merged {
		def, known := h.defaults[key]
		switch {
		case !known:
			delete(merged, key)
		case !h.valid(key, value):
			merged[key] = def
		}
	}
	h.current = merged
	return nil
}

func (h *settingsHolder) valid(key string, v model.SettingValue) bool {
	if v.Kind != h.defaults[key].Kind {
		return false
	}
	var d *model.SettingsControlDescriptor
	for i := range h.descriptor {
		if h.descriptor[i].Key == key {
			d = &h.descriptor[i]
			break
		}
	}
	if d == nil {
		return true
	}
	switch d.ControlType {
	case model.ControlSlider:
		return v.Number >= d.Min && v.Number <= d.Max
	case model.ControlSelect:
		return hasOption(d.Options, v.String)
	case model.ControlListSelect:
		if len(v.List) == 0 {
			return false
		}
		for _, item := range v.List {
			if !hasOption(d.Options, item) {
				return false
			}
		}
	}
	return true
}

func hasOption(opts []model.ControlOption, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

func (h *settingsHolder) number(key string) float64 {
	return h.current[key].Number
}

func (h *settingsHolder) text(key string) string {
	return h.current[key].String
}

// included returns the answers of all that the list setting key keeps,
// in the order of all.
func (h *settingsHolder) included(key string, all []model.Answer) []model.Answer {
	keep := h.current[key].List
	var out []model.Answer
	for _, a := range all {
		if slices.Contains(keep, string(a)) {
			out = append(out, a)
		}
	}
	return out
}

func optionsOf(items []model.Answer) []model.ControlOption {
	out := make([]model.ControlOption, len(items))
	for i, a := range items {
		out[i] = model.ControlOption{Label: string(a), Value: string(a)}
	}
	return out
}

func listOf(items []model.Answer) model.SettingValue {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = string(a)
	}
	return model.ListValue(out...)
}
