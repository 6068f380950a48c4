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

package session

import (
	"fmt"
	"sync"

	"github.com/mlat-server/clocksync/pairing"
)

type pairKey struct {
	base, peer string
	category   int
}

// Registry owns receivers and the ClockPairing objects tracking them. It
// guards pairing creation and lookup with a mutex, but does not itself
// serialize concurrent Update calls against a pairing it hands out: a
// caller holding a *pairing.ClockPairing reference is still responsible for
// not mutating it from more than one goroutine at a time, per the core's
// single-threaded-cooperative contract.
type Registry struct {
	mu        sync.RWMutex
	receivers map[string]*Receiver
	pairings  map[pairKey]*pairing.ClockPairing
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		receivers: make(map[string]*Receiver),
		pairings:  make(map[pairKey]*pairing.ClockPairing),
	}
}

// AddReceiver registers (or replaces) a receiver under its user identifier.
func (r *Registry) AddReceiver(rx *Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receivers[rx.User()] = rx
}

// Receiver looks up a receiver by user identifier.
func (r *Registry) Receiver(user string) (*Receiver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rx, ok := r.receivers[user]
	return rx, ok
}

// Pairing returns the ClockPairing tracking (base, peer, category),
// creating it on first use.
func (r *Registry) Pairing(base, peer string, category int) (*pairing.ClockPairing, error) {
	key := pairKey{base: base, peer: peer, category: category}

	r.mu.RLock()
	p, ok := r.pairings[key]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pairings[key]; ok {
		return p, nil
	}

	baseRx, ok := r.receivers[base]
	if !ok {
		return nil, fmt.Errorf("session: unknown receiver %q", base)
	}
	peerRx, ok := r.receivers[peer]
	if !ok {
		return nil, fmt.Errorf("session: unknown receiver %q", peer)
	}

	p = pairing.New(baseRx, peerRx, category)
	r.pairings[key] = p
	return p, nil
}

// Drop removes a pairing, e.g. because the sync driver decided it's stale
// or one of its receivers disconnected.
func (r *Registry) Drop(base, peer string, category int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pairings, pairKey{base: base, peer: peer, category: category})
}

// Pairings returns a snapshot slice of all currently tracked pairings, used
// by the metrics exporter to iterate without holding the registry lock
// across the relatively slow Prometheus scrape.
func (r *Registry) Pairings() []*pairing.ClockPairing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pairing.ClockPairing, 0, len(r.pairings))
	for _, p := range r.pairings {
		out = append(out, p)
	}
	return out
}
