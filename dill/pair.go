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
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/log"
)

// halfChannel is one of the two twin structures that make up a pair.
// Its in queue holds waiting receivers, its out queue holds waiting
// senders; both are FIFO, and at most one is non-empty at any
// quiescent point.
type halfChannel struct {
	owner *pair
	index int

	in  list.List // waiting *clause receivers
	out list.List // waiting *clause senders

	done   bool // this direction has been torn down by Done
	closed bool // the user-facing endpoint over this half was Closed
}

func (h *halfChannel) sibling() *halfChannel {
	return &h.owner.halves[1-h.index]
}

// pair is the shared storage backing both halves of a channel. The two
// halves are allocated together (an array, not two separate pointers)
// so sibling lookup is a plain index flip.
type pair struct {
	mu          sync.Mutex
	halves      [2]halfChannel
	ownsStorage bool
	clock       mclock.Clock
}

// PairStorage is caller-owned memory for the in-place constructor,
// NewPairIn. It must outlive both endpoints returned alongside it; the
// zero value is ready to use. There is no raw byte layout to get
// right here, only ownership: the caller guarantees the memory stays
// alive for as long as either endpoint does.
type PairStorage struct {
	p pair
}

// Endpoint is one of the two user-facing descriptors of a channel pair.
// A nil or zero Endpoint resolves to ErrBadHandle. A closed Endpoint
// still resolves to its half; Close does not invalidate it.
type Endpoint struct {
	half *halfChannel
}

func (e *Endpoint) String() string {
	if e == nil || e.half == nil {
		return "<dill.Endpoint invalid>"
	}
	h := e.half
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	return fmt.Sprintf("<dill.Endpoint idx=%d done=%t closed=%t>", h.index, h.done, h.closed)
}

func initPair(p *pair, ownsStorage bool) (*Endpoint, *Endpoint) {
	p.ownsStorage = ownsStorage
	if p.clock == nil {
		p.clock = Clock
	}
	p.halves[0] = halfChannel{owner: p, index: 0}
	p.halves[1] = halfChannel{owner: p, index: 1}
	return &Endpoint{half: &p.halves[0]}, &Endpoint{half: &p.halves[1]}
}

// NewPair heap-allocates a fresh channel pair and returns its two
// endpoints. It fails with ErrCancelled if ctx is already done, and in
// principle with ErrOutOfMemory (see that error's doc).
func NewPair(ctx context.Context) (*Endpoint, *Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, ErrCancelled
	}
	p := &pair{}
	s, r := initPair(p, true)
	log.Trace("dill: pair created", "storage", "heap")
	return s, r, nil
}

// NewPairIn initializes a pair in caller-supplied storage, marking the
// pair as not owning that storage (it is never the pair's job to
// release it). storage must not be nil.
func NewPairIn(ctx context.Context, storage *PairStorage) (*Endpoint, *Endpoint, error) {
	if storage == nil {
		return nil, nil, ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, ErrCancelled
	}
	s, r := initPair(&storage.p, false)
	log.Trace("dill: pair created", "storage", "in-place")
	return s, r, nil
}

// NewPairWithClock is like NewPair but lets a test inject a
// mclock.Simulated instead of relying on Clock, the package-level
// default.
func NewPairWithClock(ctx context.Context, clock mclock.Clock) (*Endpoint, *Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, ErrCancelled
	}
	p := &pair{clock: clock}
	s, r := initPair(p, true)
	return s, r, nil
}
