package config

import (
	"github.com/pkg/errors"

	sn "github.com/sharnoff/splitnet"
	"github.com/sharnoff/splitnet/hyperparams"
)

// Schedule describes a learning rate that may change over the iterations.
type Schedule struct {
	// Type is one of "constant", "step" or "inverse-time"
	Type string `yaml:"type"`

	// Value is the constant value, or the initial value of the other types
	Value float64 `yaml:"value"`

	// inverse-time only
	DecaySteps int     `yaml:"decay_steps,omitempty"`
	DecayRate  float64 `yaml:"decay_rate,omitempty"`
	Staircase  bool    `yaml:"staircase,omitempty"`

	// step only
	Steps []StepPoint `yaml:"steps,omitempty"`
}

// StepPoint changes the value of a "step" schedule from an iteration onwards
type StepPoint struct {
	Iter  int     `yaml:"iter"`
	Value float64 `yaml:"value"`
}

// Constant returns a Schedule that never changes
func Constant(v float64) Schedule {
	return Schedule{Type: "constant", Value: v}
}

// InverseTime returns an inverse-time-decay Schedule
func InverseTime(initial float64, decaySteps int, rate float64, staircase bool) Schedule {
	return Schedule{
		Type:       "inverse-time",
		Value:      initial,
		DecaySteps: decaySteps,
		DecayRate:  rate,
		Staircase:  staircase,
	}
}

// Build returns the HyperParameter described by the Schedule
func (s Schedule) Build() (sn.HyperParameter, error) {
	switch s.Type {
	case "constant", "":
		return hyperparams.Constant(s.Value), nil
	case "step":
		st := hyperparams.Step(s.Value)
		for _, p := range s.Steps {
			st.Add(p.Iter, p.Value)
		}
		return st, nil
	case "inverse-time":
		return hyperparams.InverseTimeDecay(s.Value, s.DecaySteps, s.DecayRate, s.Staircase), nil
	}

	return nil, errors.Errorf("Unknown schedule type %q", s.Type)
}

func (s Schedule) validate(name string) error {
	if _, err := s.Build(); err != nil {
		return errors.Wrap(err, name)
	} else if s.Value < 0 {
		return errors.Errorf("%s must be >= 0 (%v)", name, s.Value)
	}

	for _, p := range s.Steps {
		if p.Value < 0 || p.Iter < 0 {
			return errors.Errorf("%s has bad step %+v", name, p)
		}
	}

	return nil
}
