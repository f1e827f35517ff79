package scoring

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gzhole/lastlayer/internal/threat"
)

// ErrInvalidProfile is returned for a scoring profile that cannot be used.
var ErrInvalidProfile = errors.New("invalid scoring profile")

// Profile is the YAML form of a Model. Kinds are referenced by name.
// Sections left out of the document keep their built-in values.
type Profile struct {
	DefaultWeight *float64             `yaml:"default_weight,omitempty"`
	Weights       map[string]float64   `yaml:"weights,omitempty"`
	Interactions  []ProfileInteraction `yaml:"interactions,omitempty"`
}

// ProfileInteraction is one interaction entry of a Profile.
type ProfileInteraction struct {
	Pair       []string `yaml:"pair,flow"`
	Adjustment float64  `yaml:"adjustment"`
}

// LoadProfile reads a YAML profile from path and builds a Model from it.
func LoadProfile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	m, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseProfile builds a Model from YAML profile data.
func ParseProfile(data []byte) (*Model, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return p.Model()
}

// Model validates the profile and converts it to a Model.
func (p Profile) Model() (*Model, error) {
	defaultWeight := DefaultWeight
	if p.DefaultWeight != nil {
		defaultWeight = *p.DefaultWeight
	}
	if !validWeight(defaultWeight) {
		return nil, fmt.Errorf("%w: default_weight %v must be a positive finite number", ErrInvalidProfile, defaultWeight)
	}

	weights := DefaultWeights()
	if p.Weights != nil {
		weights = make(map[threat.Kind]float64, len(p.Weights))
		for name, w := range p.Weights {
			k, err := threat.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("%w: weights: %w", ErrInvalidProfile, err)
			}
			if !validWeight(w) {
				return nil, fmt.Errorf("%w: weight of %s is %v, must be a positive finite number", ErrInvalidProfile, k, w)
			}
			weights[k] = w
		}
	}

	interactions := DefaultInteractions()
	if p.Interactions != nil {
		interactions = make([]Interaction, 0, len(p.Interactions))
		for i, pi := range p.Interactions {
			if len(pi.Pair) != 2 {
				return nil, fmt.Errorf("%w: interaction %d: pair must name exactly two kinds", ErrInvalidProfile, i)
			}
			kinds, err := threat.ParseKinds(pi.Pair)
			if err != nil {
				return nil, fmt.Errorf("%w: interaction %d: %w", ErrInvalidProfile, i, err)
			}
			if kinds[0] == kinds[1] {
				return nil, fmt.Errorf("%w: interaction %d: pair repeats %s", ErrInvalidProfile, i, kinds[0])
			}
			if math.IsNaN(pi.Adjustment) || math.IsInf(pi.Adjustment, 0) {
				return nil, fmt.Errorf("%w: interaction %d: adjustment %v is not finite", ErrInvalidProfile, i, pi.Adjustment)
			}
			interactions = append(interactions, Interaction{
				Pair:       NewPair(kinds[0], kinds[1]),
				Adjustment: pi.Adjustment,
			})
		}
	}

	return NewModel(defaultWeight, weights, interactions), nil
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 1)
}

// ProfileOf converts a Model back into its YAML form.
func ProfileOf(m *Model) Profile {
	dw := m.defaultWeight
	p := Profile{
		DefaultWeight: &dw,
		Weights:       make(map[string]float64, len(m.weights)),
		Interactions:  make([]ProfileInteraction, 0, len(m.interactions)),
	}
	for k, w := range m.weights {
		p.Weights[k.String()] = w
	}
	for _, in := range m.interactions {
		p.Interactions = append(p.Interactions, ProfileInteraction{
			Pair:       []string{in.Pair.A.String(), in.Pair.B.String()},
			Adjustment: in.Adjustment,
		})
	}
	return p
}

// MarshalProfile renders m as a YAML profile document.
func MarshalProfile(m *Model) ([]byte, error) {
	return yaml.Marshal(ProfileOf(m))
}
