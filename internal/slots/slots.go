/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package slots loads the daily slot table and the downstream endpoint
// address, and resolves a time of day to a slot index.
package slots

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/slotbell/internal/clock"
	"github.com/friendsincode/slotbell/internal/daytime"
)

// ErrConfigUnavailable is returned when the slot configuration cannot be
// read, parsed or validated. Callers skip the evaluation.
var ErrConfigUnavailable = errors.New("slot config unavailable")

// Slot is one configured teaching period.
type Slot struct {
	Index int    `json:"index"`
	Time  string `json:"time"`
}

// Config is immutable once loaded.
type Config struct {
	Slots           map[int]string
	EndpointAddress string
	// Warnings lists problems that do not stop resolution, such as slot
	// times that do not increase with the index.
	Warnings []string
}

// fileConfig is the on-disk shape. slotConfig.json is valid YAML, so
// both formats decode through yaml.v3.
type fileConfig struct {
	Slots               map[string]string `yaml:"slots" validate:"required,min=1,max=6,dive,keys,oneof=1 2 3 4 5 6,endkeys,required"`
	MasterRouterAddress string            `yaml:"master_router_address" validate:"required"`
}

var validate = validator.New()

// Parse decodes and validates raw configuration bytes.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrConfigUnavailable, err)
	}
	if err := validate.Struct(fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	cfg := &Config{
		Slots:           make(map[int]string, len(fc.Slots)),
		EndpointAddress: fc.MasterRouterAddress,
	}
	for key, value := range fc.Slots {
		index, _ := strconv.Atoi(key)
		normalized, err := clock.NormalizeTime(value)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", ErrConfigUnavailable, index, err)
		}
		cfg.Slots[index] = normalized
	}

	// Resolution is an exact match and tolerates a mis-ordered table, so
	// ordering problems are reported rather than rejected.
	ordered := cfg.Ordered()
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Time <= ordered[i-1].Time {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("slot %d (%s) does not start after slot %d (%s)",
				ordered[i].Index, ordered[i].Time, ordered[i-1].Index, ordered[i-1].Time))
		}
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}
	return Parse(data)
}

// Resolve returns the slot whose configured time equals hhmm exactly. When
// several slots share a time the lowest index wins.
func (c *Config) Resolve(hhmm string) (int, bool) {
	for _, s := range c.Ordered() {
		if s.Time == hhmm {
			return s.Index, true
		}
	}
	return 0, false
}

// TimeOf returns the configured start time of slot.
func (c *Config) TimeOf(slot int) (string, bool) {
	t, ok := c.Slots[slot]
	return t, ok
}

// Ordered lists slots by index.
func (c *Config) Ordered() []Slot {
	out := make([]Slot, 0, len(c.Slots))
	for index, t := range c.Slots {
		out = append(out, Slot{Index: index, Time: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Indexes lists configured slot numbers in order, as strings, for error
// messages that name the available slots.
func (c *Config) Indexes() []string {
	ordered := c.Ordered()
	out := make([]string, len(ordered))
	for i, s := range ordered {
		out[i] = strconv.Itoa(s.Index)
	}
	return out
}

// StringSlots is the JSON friendly {"1": "09:00"} form.
func (c *Config) StringSlots() map[string]string {
	out := make(map[string]string, len(c.Slots))
	for index, t := range c.Slots {
		out[strconv.Itoa(index)] = t
	}
	return out
}

// Source supplies a fresh Config for every evaluation.
type Source interface {
	Load() (*Config, error)
}

// FileSource rereads Path on every call so edits apply without a restart.
type FileSource struct {
	Path string
}

// Load implements Source.
func (f FileSource) Load() (*Config, error) {
	return Load(f.Path)
}

// StaticSource always returns the same configuration, or Err when set.
type StaticSource struct {
	Config *Config
	Err    error
}

// Load implements Source.
func (s StaticSource) Load() (*Config, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Config == nil {
		return nil, ErrConfigUnavailable
	}
	return s.Config, nil
}

// ValidSlot reports whether slot is inside the timetable grid.
func ValidSlot(slot int) bool {
	return slot >= daytime.MinSlot && slot <= daytime.MaxSlot
}
