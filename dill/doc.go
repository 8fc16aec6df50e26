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

// Package dill implements an unbuffered, bidirectional, typed-message
// rendezvous channel: a send only completes when a matching receive is
// simultaneously ready, otherwise the caller blocks until one appears,
// a deadline passes, or the channel's peer direction is torn down.
//
// A channel is created as a pair of endpoints (NewPair, NewPairIn).
// Send on one endpoint rendezvous with Recv on the other: orientation
// is fixed at creation time but the underlying machinery is symmetric,
// so either endpoint may call Send or Recv.
//
// There is no buffering and no broadcast: a message is handed to
// exactly one receiver, synchronously, with a direct copy from the
// sender's buffer into the receiver's. Multiple pending operations
// across several pairs can be raced against each other with Choose.
package dill
