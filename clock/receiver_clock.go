/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package clock describes receiver clock timebases: nominal frequency,
// maximum fractional frequency error, and per-timestamp jitter, keyed by
// the receiver type tag a message transport reports. It has nothing to do
// with the local machine's own clock; see the discipline package for that.
package clock

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// CAir is the speed of light in air in meters per second, used only to
// derive Clock.DelayFactor for higher-level TDOA geometry code.
const CAir = 299702547.0

// Clock describes one receiver's local timebase: its nominal frequency, its
// maximum fractional frequency error, and the standard deviation of a single
// timestamp reading (jitter). Clock values are immutable and may be freely
// shared across goroutines.
type Clock struct {
	Freq         float64
	MaxFreqError float64
	Jitter       float64
	DelayFactor  float64
}

// ErrUnsupportedClockType is returned by ForType and Registry.ForType when
// the receiver type tag has no known preset.
var ErrUnsupportedClockType = errors.New("clock: unsupported clock type")

func newClock(freq, maxFreqError, jitter float64) Clock {
	return Clock{
		Freq:         freq,
		MaxFreqError: maxFreqError,
		Jitter:       jitter,
		DelayFactor:  freq / CAir,
	}
}

// builtinPresets are the receiver types the core ships support for out of
// the box, keyed by the tag the receiver's message transport reports.
var builtinPresets = map[string]Clock{
	"radarcape_gps":   newClock(1e9, 1e-6, 15e-9),
	"beast":           newClock(1.2e7, 5e-6, 8.3e-8),
	"radarcape_12mhz": newClock(1.2e7, 5e-6, 8.3e-8),
	"sbs":             newClock(2e7, 1e-4, 5e-7),
	"dump1090":        newClock(1.2e7, 1e-4, 5e-7),
	"unknown":         newClock(1.2e7, 1e-4, 5e-7),
}

// ForType resolves a receiver type tag against the built-in preset table.
func ForType(tag string) (Clock, error) {
	c, ok := builtinPresets[tag]
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q", ErrUnsupportedClockType, tag)
	}
	return c, nil
}

// Registry resolves receiver type tags to Clock presets, letting deployment
// configuration add or override tags beyond the built-in table without a
// code change. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Clock
}

// NewRegistry returns a Registry seeded with the built-in preset table.
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]Clock, len(builtinPresets))}
	for tag, c := range builtinPresets {
		r.presets[tag] = c
	}
	return r
}

// Register adds or overrides a preset. It is safe to call concurrently with
// ForType.
func (r *Registry) Register(tag string, c Clock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[tag] = c
}

// ForType resolves tag against the registry's current preset table.
func (r *Registry) ForType(tag string) (Clock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.presets[tag]
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q", ErrUnsupportedClockType, tag)
	}
	return c, nil
}

// Tags returns the registry's known tags in sorted order, used by the
// inspection CLI to render the preset table deterministically.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.presets))
	for tag := range r.presets {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
