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
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestQueueExclusivityUnderLoad checks that, after heavy concurrent
// traffic, no half has both its in and out queues non-empty at
// quiescence. Many senders and receivers race against one pair; every
// operation must end in success or ErrTimeout, and the run must finish
// without deadlocking, which is only possible if Send/Recv's
// check-or-enqueue step is genuinely atomic under concurrent access
// from many goroutines.
func TestQueueExclusivityUnderLoad(t *testing.T) {
	a, b, err := NewPair(context.Background())
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	var matched, timedOut int64

	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := 0; m < perWorker; m++ {
				payload := []byte{byte(i), byte(m)}
				err := a.Send(context.Background(), payload, 200*time.Millisecond)
				switch {
				case err == nil:
					atomic.AddInt64(&matched, 1)
				case errors.Is(err, ErrTimeout):
					atomic.AddInt64(&timedOut, 1)
				default:
					t.Errorf("unexpected Send error: %v", err)
				}
			}
		}()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 2)
			for m := 0; m < perWorker; m++ {
				_, err := b.Recv(context.Background(), buf, 200*time.Millisecond)
				switch {
				case err == nil:
				case errors.Is(err, ErrTimeout):
				default:
					t.Errorf("unexpected Recv error: %v", err)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("workers deadlocked")
	}

	p := a.half.owner
	p.mu.Lock()
	for idx := range p.halves {
		h := &p.halves[idx]
		if h.in.Len() > 0 && h.out.Len() > 0 {
			t.Fatalf("half %d has both in (%d) and out (%d) non-empty at quiescence",
				idx, h.in.Len(), h.out.Len())
		}
	}
	p.mu.Unlock()
}

// TestChooseNoDoubleFireAcrossClauses guards against a Choose call
// completing two of its own clauses at once: one clause matches
// synchronously during the trial scan while an earlier, still-enqueued
// clause is concurrently matched by an unrelated peer. Both legs
// belong to the same call, so at most one of them may ever complete.
func TestChooseNoDoubleFireAcrossClauses(t *testing.T) {
	for iter := 0; iter < 200; iter++ {
		a1, b1, err := NewPair(context.Background())
		if err != nil {
			t.Fatalf("NewPair 1: %v", err)
		}
		a2, b2, err := NewPair(context.Background())
		if err != nil {
			t.Fatalf("NewPair 2: %v", err)
		}

		// Park a sender on pair 2 so RecvClause(b2, ...) is immediately
		// satisfiable; pair 1 has no waiting peer, so RecvClause(b1, ...)
		// must be enqueued.
		sendDone := make(chan error, 1)
		go func() { sendDone <- a2.Send(context.Background(), []byte("ready"), Forever) }()

		bufA := make([]byte, 5)
		bufB := make([]byte, 5)
		chooseDone := make(chan struct {
			idx int
			err error
		}, 1)
		go func() {
			idx, err := Choose(context.Background(), Forever,
				RecvClause(b1, bufA),
				RecvClause(b2, bufB),
			)
			chooseDone <- struct {
				idx int
				err error
			}{idx, err}
		}()

		// Race several sends against pair 1's recv clause while Choose is
		// (or is about to be) running; none may ever reach bufA.
		var wg sync.WaitGroup
		const racers = 8
		racerResults := make([]error, racers)
		for i := 0; i < racers; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				racerResults[i] = a1.Send(context.Background(), []byte("racer"), 50*time.Millisecond)
			}()
		}

		var res struct {
			idx int
			err error
		}
		select {
		case res = <-chooseDone:
		case <-time.After(2 * time.Second):
			t.Fatal("Choose never returned")
		}
		wg.Wait()

		if res.err != nil {
			t.Fatalf("Choose: %v", res.err)
		}

		matched := 0
		for _, rerr := range racerResults {
			if rerr == nil {
				matched++
			} else if !errors.Is(rerr, ErrTimeout) {
				t.Fatalf("racer send: unexpected error %v", rerr)
			}
		}

		// Either outcome is legitimate on its own: a racer can genuinely
		// win clause 0 if it reaches pair 1 before Choose does (idx 0),
		// or clause 1's already-waiting sender can win outright (idx 1).
		// What must never happen is both firing for the same call.
		switch res.idx {
		case 0:
			if !bytes.Equal(bufA, []byte("racer")) {
				t.Fatalf("iteration %d: Choose fired clause 0 but bufA = %q", iter, bufA)
			}
			for _, bufByte := range bufB {
				if bufByte != 0 {
					t.Fatalf("iteration %d: clause 1's buffer was written (%v) even though Choose fired clause 0 — double delivery", iter, bufB)
				}
			}
			if matched != 1 {
				t.Fatalf("iteration %d: Choose fired clause 0 but %d racer sends matched (want exactly 1)", iter, matched)
			}
			// Clause 1 never fired, so its waiting sender is still
			// parked; drain it so its goroutine doesn't leak.
			buf := make([]byte, 5)
			if _, err := b2.Recv(context.Background(), buf, Forever); err != nil {
				t.Fatalf("drain pair 2 recv: %v", err)
			}
		case 1:
			if !bytes.Equal(bufB, []byte("ready")) {
				t.Fatalf("iteration %d: Choose fired clause 1 but bufB = %q", iter, bufB)
			}
			for _, bufByte := range bufA {
				if bufByte != 0 {
					t.Fatalf("iteration %d: clause 0's buffer was written (%v) even though Choose fired clause 1 — double delivery", iter, bufA)
				}
			}
			if matched != 0 {
				t.Fatalf("iteration %d: Choose fired clause 1 but %d racer sends also matched clause 0 — double delivery", iter, matched)
			}
		default:
			t.Fatalf("iteration %d: unexpected Choose index %d", iter, res.idx)
		}

		if err := <-sendDone; err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
}

// TestChooseUnderConcurrentPeers exercises the CAS-gated claim path in
// dequeueLive/drain: many goroutines race to be the one that matches a
// single parked Choose leg, and exactly one of them must see it
// succeed while every other sees its own, independent outcome.
func TestChooseUnderConcurrentPeers(t *testing.T) {
	a, b, err := NewPair(context.Background())
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}

	chooseDone := make(chan struct {
		idx int
		err error
	}, 1)
	buf := make([]byte, 1)
	go func() {
		idx, err := Choose(context.Background(), time.Second, RecvClause(b, buf))
		chooseDone <- struct {
			idx int
			err error
		}{idx, err}
	}()
	time.Sleep(20 * time.Millisecond)

	const racers = 10
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Send(context.Background(), []byte{byte(i)}, 100*time.Millisecond)
			if err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one Send should have matched the single Recv clause, got %d", wins)
	}
	select {
	case res := <-chooseDone:
		if res.err != nil {
			t.Fatalf("Choose: %v", res.err)
		}
		if res.idx != 0 {
			t.Fatalf("Choose index = %d, want 0", res.idx)
		}
	case <-time.After(time.Second):
		t.Fatal("Choose never resolved")
	}
}
