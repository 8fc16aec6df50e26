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

import (
	"container/list"
	"context"

	"github.com/ethereum/go-ethereum/log"
)

// Done half-closes the direction flowing out of e, applied (like Send)
// to e's sibling: afterwards e's Sends and the sibling endpoint's Recvs
// fail ErrPeerClosed. It fails ErrPeerClosed if that direction was already
// done. There is no deadline parameter: Done never blocks, so one would
// only ever be dead API surface. ctx is kept only so a cancelled caller
// still observes ErrCancelled instead of silently proceeding.
func (e *Endpoint) Done(ctx context.Context) error {
	if e == nil || e.half == nil {
		return ErrBadHandle
	}
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	sib := e.half.sibling()
	p := sib.owner

	p.mu.Lock()
	if sib.done {
		p.mu.Unlock()
		return ErrPeerClosed
	}
	sib.done = true
	woken := drain(&sib.in) + drain(&sib.out)
	p.mu.Unlock()

	log.Debug("dill: direction closed", "index", sib.index, "woken", woken)
	return nil
}

// drain wakes every clause still linked in q with ErrPeerClosed and
// returns how many were live (i.e. not a stale, already-decided Choose
// leg). Must be called with the owning pair's mutex held; it leaves q
// empty.
func drain(q *list.List) int {
	woken := 0
	for e := q.Front(); e != nil; {
		next := e.Next()
		cl := e.Value.(*clause)
		q.Remove(e)
		cl.queue, cl.elem = nil, nil
		e = next

		if cl.call != nil {
			if !cl.call.claim() {
				continue // a peer's Send/Recv/Choose already claimed it
			}
		}
		wake(cl, 0, ErrPeerClosed)
		woken++
	}
	return woken
}
