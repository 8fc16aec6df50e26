// Copyright 2024 The libdill-go Authors
// This file is part of the libdill-go library.
//
// The libdill-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The libdill-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the libdill-go library. If not, see <http://www.gnu.org/licenses/>.

package dill

import "sync"

// Registry hands out small integer handles for an *Endpoint, for use
// across a CLI or RPC boundary where a pointer can't cross the wire.
// It is deliberately separate from the pair/halfChannel machinery: the
// core never consults it, and nothing about Send/Recv/Choose depends
// on a handle ever being issued.
type Registry struct {
	mu      sync.Mutex
	next    int
	handles map[int]*Endpoint
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[int]*Endpoint)}
}

// Make installs ep under a freshly allocated handle and returns it.
// Allocation and publication of that one handle happen under one lock.
// Installing both endpoints of a pair takes two Make calls, each its
// own critical section, so another goroutine can observe the first
// handle before the second is installed.
func (r *Registry) Make(ep *Endpoint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.handles[r.next] = ep
	return r.next
}

// Query resolves a handle back to its Endpoint, or ErrBadHandle if it
// was never issued or has been Forgotten.
func (r *Registry) Query(handle int) (*Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.handles[handle]
	if !ok {
		return nil, ErrBadHandle
	}
	return ep, nil
}

// Forget removes a handle once its endpoint is no longer needed. It is
// not an error to forget an unknown or already-forgotten handle.
func (r *Registry) Forget(handle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, handle)
}
