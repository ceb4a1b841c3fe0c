// Package fixture loads interval scenarios from YAML files.
//
// A scenario describes one or more lanes of items plus the options of the
// accumulator that folds them. Delays are written in milliseconds.
//
//	name: highway
//	repeat: true
//	extraDelay: 500
//	accumulate:
//	  removeAfterTime: 1500
//	lanes:
//	  - items:
//	      - {delay: 0, key: car}
//	      - {delay: 400, key: truck, value: 3}
package fixture

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/intervalz"
)

// ErrInvalidScenario is returned when a scenario fails validation.
var ErrInvalidScenario = errors.New("invalid scenario")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Scenario is a parsed scenario file.
type Scenario struct {
	Name       string     `yaml:"name" validate:"required"`
	Repeat     bool       `yaml:"repeat"`
	ExtraDelay int64      `yaml:"extraDelay" validate:"gte=0"`
	Accumulate Accumulate `yaml:"accumulate"`
	Lanes      []Lane     `yaml:"lanes" validate:"required,min=1,dive"`
}

// Accumulate holds the accumulator options, in milliseconds.
type Accumulate struct {
	RemoveAfterTime int64  `yaml:"removeAfterTime" validate:"gte=0"`
	RemoveOnKey     string `yaml:"removeOnKey"`
	CloseAfterTime  int64  `yaml:"closeAfterTime" validate:"gte=0"`
}

// Lane is one independent item list.
type Lane struct {
	Entries []Entry `yaml:"items" validate:"dive"`
}

// Entry is an untagged item as written in the file.
type Entry struct {
	Delay int64  `yaml:"delay" validate:"gte=0"`
	Key   string `yaml:"key" validate:"required"`
	Value any    `yaml:"value"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the scenario against its field constraints.
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// Items converts the lane entries into untagged items.
func (l Lane) Items() []intervalz.Item {
	items := make([]intervalz.Item, 0, len(l.Entries))
	for _, e := range l.Entries {
		items = append(items, intervalz.Item{
			Delay: millis(e.Delay),
			Key:   e.Key,
			Value: e.Value,
		})
	}
	return items
}

// AccumulateConfig returns the accumulator options of the scenario.
func (s *Scenario) AccumulateConfig() intervalz.AccumulateConfig {
	return intervalz.AccumulateConfig{
		RemoveAfterTime: millis(s.Accumulate.RemoveAfterTime),
		RemoveOnKey:     s.Accumulate.RemoveOnKey,
		CloseAfterTime:  millis(s.Accumulate.CloseAfterTime),
	}
}

// End returns the end of a cycle: the last item of the lane that finishes
// latest.
func (s *Scenario) End() intervalz.CycleEnd {
	var latest []intervalz.Item
	var end time.Duration = -1
	for _, lane := range s.Lanes {
		items := lane.Items()
		if len(items) == 0 {
			continue
		}
		if d := items[len(items)-1].Delay; d > end {
			end = d
			latest = items
		}
	}
	return intervalz.EndAfterItems(latest)
}

// LoopConfig returns the loop settings of the scenario. repeat is the flag
// the loop reads at the end of every cycle.
func (s *Scenario) LoopConfig(repeat intervalz.Flag) intervalz.LoopConfig {
	return intervalz.LoopConfig{
		End:        s.End(),
		ExtraDelay: millis(s.ExtraDelay),
		Repeat:     repeat,
	}
}

func millis(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}
