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

import "github.com/ethereum/go-ethereum/log"

// Close is non-blocking and cannot fail for a valid, not-yet-closed
// endpoint. Closing the first of a pair's two endpoints just marks it
// closed; closing the second tears the whole pair down, waking every
// clause still queued on either half with ErrPeerClosed before the
// pair's resources (if it owns any) become eligible for collection.
//
// There is no canonical half that drives teardown: Go has no free() to
// serialize around, so the second close just drains both halves
// unconditionally, in either order.
func (e *Endpoint) Close() error {
	if e == nil || e.half == nil {
		return ErrBadHandle
	}

	h := e.half
	p := h.owner

	p.mu.Lock()
	if h.closed {
		p.mu.Unlock()
		return nil
	}
	h.closed = true

	other := h.sibling()
	if !other.closed {
		p.mu.Unlock()
		return nil
	}

	woken := drain(&p.halves[0].in) + drain(&p.halves[0].out) +
		drain(&p.halves[1].in) + drain(&p.halves[1].out)
	owned := p.ownsStorage
	p.mu.Unlock()

	log.Debug("dill: pair torn down", "owned_storage", owned, "woken", woken)
	return nil
}
