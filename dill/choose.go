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
	"sort"
	"time"
	"unsafe"

	"github.com/ethereum/go-ethereum/log"
)

type opKind int

const (
	opSend opKind = iota
	opRecv
)

// Clause is one leg of a Choose call: a send or a receive against a
// specific endpoint, built with SendClause or RecvClause.
type Clause struct {
	ep  *Endpoint
	op  opKind
	val []byte
}

// SendClause builds a Choose leg that attempts to send b over ep.
func SendClause(ep *Endpoint, b []byte) Clause {
	return Clause{ep: ep, op: opSend, val: b}
}

// RecvClause builds a Choose leg that attempts to receive into buf over
// ep. buf is filled in place if this leg is the one that fires.
func RecvClause(ep *Endpoint, buf []byte) Clause {
	return Clause{ep: ep, op: opRecv, val: buf}
}

// Choose scans clauses left to right for one that can complete right
// away, and fires the first it finds. If none can, it links every
// clause onto its queue and waits for whichever fires first, or for the
// shared deadline to elapse.
//
// It returns the index of the clause that completed (matched or
// reported an error), or -1 with ErrTimeout if the deadline elapsed
// before any clause fired.
//
// The trial scan and the fallback enqueue are one pass, not two: every
// pair touched by any clause is locked up front, in a fixed address
// order to avoid deadlocking against another concurrent Choose over an
// overlapping clause set, and held for the whole pass. That is what
// makes "try to match, otherwise enqueue" atomic per clause and keeps
// exactly one clause able to fire for this call: with every relevant
// pair's queues frozen for the duration of the scan, nothing outside
// this call can touch an already-enqueued earlier clause while a later
// clause is still being matched synchronously, so the two can never
// both complete.
func Choose(ctx context.Context, deadline time.Duration, clauses ...Clause) (int, error) {
	for i, c := range clauses {
		if c.ep == nil || c.ep.half == nil {
			return i, ErrBadHandle
		}
	}

	pairs := lockOrder(clauses)
	lockAll(pairs)

	call := newCallState()
	records := make([]*clause, 0, len(clauses))
	blocking := deadline != 0

	matchedAt := -1
	var matchErr error

	for i, c := range clauses {
		if matchedAt >= 0 {
			break
		}
		self := c.ep.half
		switch c.op {
		case opSend:
			sib := self.sibling()
			if sib.done {
				matchedAt, matchErr = i, ErrPeerClosed
			} else if rc := dequeueLive(&sib.in); rc != nil {
				if len(rc.val) != len(c.val) {
					wake(rc, 0, ErrSizeMismatch)
					matchedAt, matchErr = i, ErrSizeMismatch
				} else {
					copy(rc.val, c.val)
					wake(rc, len(c.val), nil)
					matchedAt, matchErr = i, nil
				}
			} else if blocking {
				cl := &clause{val: c.val, call: call, idx: i}
				link(cl, &sib.out)
				records = append(records, cl)
			}
		case opRecv:
			if self.done {
				matchedAt, matchErr = i, ErrPeerClosed
			} else if sc := dequeueLive(&self.out); sc != nil {
				if len(sc.val) != len(c.val) {
					wake(sc, 0, ErrSizeMismatch)
					matchedAt, matchErr = i, ErrSizeMismatch
				} else {
					copy(c.val, sc.val)
					wake(sc, len(sc.val), nil)
					matchedAt, matchErr = i, nil
				}
			} else if blocking {
				cl := &clause{val: c.val, call: call, idx: i}
				link(cl, &self.in)
				records = append(records, cl)
			}
		default:
			matchedAt, matchErr = i, ErrInvalidArgument
		}
	}

	if matchedAt >= 0 {
		for _, cl := range records {
			unlink(cl)
		}
	}
	unlockAll(pairs)

	if matchedAt >= 0 {
		log.Trace("dill: choose matched in trial", "index", matchedAt, "err", matchErr)
		return matchedAt, matchErr
	}

	if !blocking {
		return -1, ErrTimeout
	}

	if err := ctx.Err(); err != nil {
		cancelRecords(clauses, records)
		return -1, ErrCancelled
	}

	var timer *time.Timer
	if deadline > 0 {
		timer = time.AfterFunc(deadline, func() {
			if call.claim() {
				call.deliver(-1, 0, ErrTimeout)
			}
		})
	}

	select {
	case <-call.done:
		if timer != nil {
			timer.Stop()
		}
		cancelRecords(clauses, records)
		return call.idx, call.err
	case <-ctx.Done():
		if timer != nil {
			timer.Stop()
		}
		cancelRecords(clauses, records)
		select {
		case <-call.done:
			return call.idx, call.err
		default:
			return -1, ErrCancelled
		}
	}
}

// lockOrder returns the distinct pairs touched by clauses, sorted by
// address so Choose can lock all of them without risking a deadlock
// against another goroutine locking the same set in a different order.
func lockOrder(clauses []Clause) []*pair {
	seen := make(map[*pair]bool, len(clauses))
	pairs := make([]*pair, 0, len(clauses))
	for _, c := range clauses {
		p := c.ep.half.owner
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return uintptr(unsafe.Pointer(pairs[i])) < uintptr(unsafe.Pointer(pairs[j]))
	})
	return pairs
}

func lockAll(pairs []*pair) {
	for _, p := range pairs {
		p.mu.Lock()
	}
}

func unlockAll(pairs []*pair) {
	for _, p := range pairs {
		p.mu.Unlock()
	}
}

// cancelRecords unlinks every clause record still linked into a queue.
// Safe to call after a match: the winning clause was already unlinked
// by whoever claimed it, so only the losers remain linked here.
func cancelRecords(clauses []Clause, records []*clause) {
	for _, cl := range records {
		p := ownerOf(clauses, cl)
		if p == nil {
			continue
		}
		p.mu.Lock()
		unlink(cl)
		p.mu.Unlock()
	}
}

func ownerOf(clauses []Clause, cl *clause) *pair {
	if cl.idx < 0 || cl.idx >= len(clauses) {
		return nil
	}
	return clauses[cl.idx].ep.half.owner
}
