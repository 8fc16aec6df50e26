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

import "errors"

// The seven error kinds the core can raise. They are plain sentinel
// values, comparable with errors.Is.
var (
	// ErrBadHandle is returned when an endpoint does not resolve to a
	// channel half: a nil Endpoint or a zero-value Endpoint that was
	// never initialized. Closing an endpoint does not invalidate it;
	// calls on a closed endpoint are not rejected with ErrBadHandle.
	ErrBadHandle = errors.New("dill: bad handle")

	// ErrInvalidArgument is returned for malformed call arguments: nil
	// storage to NewPairIn, or an unrecognized clause kind in Choose.
	ErrInvalidArgument = errors.New("dill: invalid argument")

	// ErrOutOfMemory is returned if pair allocation fails. Unreachable
	// in ordinary Go operation since the runtime panics on true OOM
	// rather than returning an error, but kept as part of the error
	// surface for callers that want to handle it explicitly.
	ErrOutOfMemory = errors.New("dill: out of memory")

	// ErrCancelled is returned when the caller's context is done at a
	// point where the call would otherwise block, or becomes done
	// while the call is suspended.
	ErrCancelled = errors.New("dill: cancelled")

	// ErrTimeout is returned when a non-blocking call (deadline 0) has
	// no immediate match, or a blocking call's deadline elapses first.
	ErrTimeout = errors.New("dill: timeout")

	// ErrPeerClosed is returned once Done has been called on the
	// applicable direction: every send/recv on that direction fails
	// this way from then on, and every waiter queued at the time of
	// Done is woken with it.
	ErrPeerClosed = errors.New("dill: peer closed")

	// ErrSizeMismatch is returned, symmetrically to both the sender
	// and the receiver, when their declared lengths disagree.
	ErrSizeMismatch = errors.New("dill: size mismatch")
)
