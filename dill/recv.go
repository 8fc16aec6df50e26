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

// Recv waits for a matching Send on e's peer, or blocks until one
// arrives. Unlike Send it operates directly on e's own half: a receive
// enqueues on self.in and matches against self.out. done on self (not
// the sibling) is what fails it: the direction flowing into this
// endpoint was closed by a Done call made on the sibling.
func (e *Endpoint) Recv(ctx context.Context, buf []byte, deadline time.Duration) (int, error) {
	if e == nil || e.half == nil {
		return 0, ErrBadHandle
	}
	if err := ctx.Err(); err != nil {
		return 0, ErrCancelled
	}

	self := e.half
	p := self.owner

	p.mu.Lock()
	if self.done {
		p.mu.Unlock()
		return 0, ErrPeerClosed
	}

	if sc := dequeueLive(&self.out); sc != nil {
		if len(sc.val) != len(buf) {
			p.mu.Unlock()
			wake(sc, 0, ErrSizeMismatch)
			log.Trace("dill: recv size mismatch", "want", len(buf), "got", len(sc.val))
			return 0, ErrSizeMismatch
		}
		copy(buf, sc.val)
		p.mu.Unlock()
		wake(sc, len(sc.val), nil)
		log.Trace("dill: recv matched", "bytes", len(sc.val))
		return len(sc.val), nil
	}

	if deadline == 0 {
		p.mu.Unlock()
		return 0, ErrTimeout
	}

	cl := &clause{val: buf, result: make(chan opResult, 1)}
	link(cl, &self.in)
	p.mu.Unlock()

	return waitClause(ctx, p, cl, deadline)
}
