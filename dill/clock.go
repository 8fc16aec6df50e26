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
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
)

// Forever, used as a deadline, blocks a Send, Recv or Choose call
// indefinitely (no timer armed). A deadline of exactly zero means
// non-blocking: fail with ErrTimeout unless an immediate match exists.
// Any other positive duration arms a timer relative to the call.
const Forever time.Duration = -1

// Clock supplies the timer primitive the core needs for blocking
// operations. It defaults to the wall clock and is swapped for a
// mclock.Simulated in tests that need deterministic deadlines.
var Clock mclock.Clock = mclock.System{}

// armTimer arms fn to run after d against clock, or returns nil if d is
// Forever (no timer needed) or non-positive (caller already decided
// non-blocking before reaching here).
func armTimer(clock mclock.Clock, d time.Duration, fn func()) mclock.Timer {
	if d <= 0 {
		return nil
	}
	return clock.AfterFunc(d, fn)
}
