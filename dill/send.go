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
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Send delivers b to whichever Recv is waiting opposite e, or blocks
// until one arrives. It operates on the sibling of e's half: a send
// enqueues on sibling.out and matches against sibling.in.
//
// deadline == 0 is non-blocking (fails ErrTimeout with no fast-path
// match); deadline == Forever blocks with no timer; any other positive
// duration arms a timer relative to the call.
func (e *Endpoint) Send(ctx context.Context, b []byte, deadline time.Duration) error {
	if e == nil || e.half == nil {
		return ErrBadHandle
	}
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	self := e.half
	p := self.owner
	sib := self.sibling()

	p.mu.Lock()
	if sib.done {
		p.mu.Unlock()
		return ErrPeerClosed
	}

	if rc := dequeueLive(&sib.in); rc != nil {
		if len(rc.val) != len(b) {
			p.mu.Unlock()
			wake(rc, 0, ErrSizeMismatch)
			log.Trace("dill: send size mismatch", "want", len(rc.val), "got", len(b))
			return ErrSizeMismatch
		}
		copy(rc.val, b)
		p.mu.Unlock()
		wake(rc, len(b), nil)
		log.Trace("dill: send matched", "bytes", len(b))
		return nil
	}

	if deadline == 0 {
		p.mu.Unlock()
		return ErrTimeout
	}

	cl := &clause{val: b, result: make(chan opResult, 1)}
	link(cl, &sib.out)
	p.mu.Unlock()

	n, err := waitClause(ctx, p, cl, deadline)
	_ = n
	return err
}
