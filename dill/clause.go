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
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
)

// opResult is what a plain (non-Choose) blocking Send or Recv is woken
// with: n is meaningful only for Recv.
type opResult struct {
	n   int
	err error
}

// clause is a waiting-clause record: one per suspended operation,
// linked into exactly one half's in or out queue at a time. call is
// non-nil only when the clause is one leg of a Choose; several clauses
// then share one callState and only the first to be claimed delivers a
// result.
type clause struct {
	queue *list.List // the list this clause is currently linked into, or nil
	elem  *list.Element

	val []byte // caller's buffer: read-only for a send, writable for a recv

	result chan opResult // buffered 1; used when call == nil

	call *callState
	idx  int // this clause's position among a Choose call's inputs
}

// callState is shared by every clause belonging to one Choose call.
// decided is the single CAS gate deciding which of potentially several
// concurrently-racing matches actually wins and delivers the result,
// the same job Go's own select statement gives each sudog's
// selectDone flag when several cases race to complete one select.
type callState struct {
	decided int32 // atomic: 0 pending, 1 claimed
	done    chan struct{}

	idx int
	n   int
	err error
}

func newCallState() *callState {
	return &callState{done: make(chan struct{})}
}

// claim attempts to win the right to deliver this call's result. Only
// the winner may act on the match it found; a loser must treat the
// clause as stale and keep scanning past it.
func (c *callState) claim() bool {
	return atomic.CompareAndSwapInt32(&c.decided, 0, 1)
}

func (c *callState) deliver(idx, n int, err error) {
	c.idx, c.n, c.err = idx, n, err
	close(c.done)
}

// wake delivers a clause's outcome to whichever caller is waiting on
// it: the shared callState for a Choose leg (already claimed by the
// caller), or the clause's own private channel otherwise. The send to
// result is non-blocking: the channel has capacity 1 and each clause is
// only ever woken once.
func wake(cl *clause, n int, err error) {
	if cl.call != nil {
		cl.call.deliver(cl.idx, n, err)
		return
	}
	select {
	case cl.result <- opResult{n: n, err: err}:
	default:
	}
}

// unlink removes cl from whatever queue it is currently linked into, if
// any. Must be called with the owning pair's mutex held.
func unlink(cl *clause) {
	if cl.queue != nil && cl.elem != nil {
		cl.queue.Remove(cl.elem)
	}
	cl.queue, cl.elem = nil, nil
}

// link pushes cl onto the tail of q and records the linkage so unlink
// can find it again. Must be called with the owning pair's mutex held.
func link(cl *clause, q *list.List) {
	cl.queue = q
	cl.elem = q.PushBack(cl)
}

// dequeueLive pops clauses off the front of q until it finds one that
// is not a stale, already-decided Choose leg, or the queue runs dry.
// It mirrors how Go's own channel runtime skips a sudog belonging to a
// select that already fired one of its other cases: a plain clause
// (call == nil) is always live, while a Choose leg is live only if it
// wins the CAS on its callState.
func dequeueLive(q *list.List) *clause {
	for {
		e := q.Front()
		if e == nil {
			return nil
		}
		cl := e.Value.(*clause)
		q.Remove(e)
		cl.queue, cl.elem = nil, nil
		if cl.call != nil && !cl.call.claim() {
			continue // stale: some other leg of its Choose already won
		}
		return cl
	}
}

// cancelClause removes cl from its queue, if it is still linked (a
// peer may have already matched it), under the owning pair's lock, and
// if removal succeeded, delivers reason as its outcome. Used by both
// the timeout timer callback and ctx cancellation.
func cancelClause(p *pair, cl *clause, reason error) {
	p.mu.Lock()
	wasLinked := cl.queue != nil
	unlink(cl)
	p.mu.Unlock()
	if wasLinked {
		wake(cl, 0, reason)
	}
}

// waitClause blocks the calling goroutine until cl is woken, the
// deadline elapses, or ctx is done, then makes sure cl is fully
// unlinked before returning on every exit path.
func waitClause(ctx context.Context, p *pair, cl *clause, deadline time.Duration) (int, error) {
	var timer mclock.Timer
	if deadline > 0 {
		timer = armTimer(p.clock, deadline, func() {
			cancelClause(p, cl, ErrTimeout)
		})
	}
	select {
	case res := <-cl.result:
		if timer != nil {
			timer.Stop()
		}
		return res.n, res.err
	case <-ctx.Done():
		if timer != nil {
			timer.Stop()
		}
		cancelClause(p, cl, ErrCancelled)
		// A match or timeout may have raced the context cancellation
		// and already be sitting in the channel; prefer it.
		select {
		case res := <-cl.result:
			return res.n, res.err
		default:
			return 0, ErrCancelled
		}
	}
}
